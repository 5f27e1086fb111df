package somperception

// somScript is the complete in-page Set-of-Marks algorithm. It is shipped to
// the browser driver as a single self-contained unit — no external capture —
// per the "cross-boundary script execution" design note: stability wait,
// traversal, scoring, dedup, capping, and overlay rendering all happen here;
// Go only receives the final {count, elements[]} payload.
const somScript = `
(maxMarks) => new Promise((resolve) => {
	const OVERLAY_ID = '__som_overlay__';
	const MARK_ATTR = 'data-som-id';

	function removeOverlay() {
		const existing = document.getElementById(OVERLAY_ID);
		if (existing) existing.remove();
	}

	function waitForStability() {
		return new Promise((res) => {
			let timer = null;
			const hardCap = setTimeout(() => { obs.disconnect(); res(); }, 3000);
			const obs = new MutationObserver(() => {
				if (timer) clearTimeout(timer);
				timer = setTimeout(() => { obs.disconnect(); clearTimeout(hardCap); res(); }, 500);
			});
			obs.observe(document.documentElement, { childList: true, subtree: true, attributes: true });
			timer = setTimeout(() => { obs.disconnect(); clearTimeout(hardCap); res(); }, 500);
		});
	}

	function isHidden(el) {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden' || style.pointerEvents === 'none') return true;
		if (el.disabled || el.getAttribute('aria-disabled') === 'true' || el.getAttribute('aria-hidden') === 'true') return true;
		if (el.tagName === 'INPUT' && el.type === 'hidden') return true;
		return false;
	}

	function interactiveScore(el) {
		if (isHidden(el)) return 0;
		const tag = el.tagName.toLowerCase();
		const nativeInteractive = ['a', 'button', 'input', 'select', 'textarea', 'option', 'summary'];
		if (nativeInteractive.includes(tag)) return 4;

		const role = (el.getAttribute('role') || '').toLowerCase();
		const interactiveRoles = ['button', 'link', 'checkbox', 'radio', 'tab', 'menuitem', 'switch', 'option', 'textbox', 'searchbox', 'combobox'];
		if (interactiveRoles.includes(role)) return 3;

		const tabindex = el.getAttribute('tabindex');
		if (el.onclick || el.getAttribute('onclick') || (tabindex !== null && parseInt(tabindex, 10) >= 0)) return 2;

		const style = window.getComputedStyle(el);
		if (style.cursor === 'pointer') {
			const cls = (el.className && el.className.toString) ? el.className.toString().toLowerCase() : '';
			const semanticClass = /\b(btn|button|cta|link|nav|menu|tab)\b/.test(cls);
			const hasDataHint = Array.from(el.attributes || []).some(a => /^data-(action|click|toggle|target)/.test(a.name));
			const hasText = (el.innerText || el.textContent || '').trim().length > 0;
			if (semanticClass || hasDataHint || hasText) return 1;
		}
		return 0;
	}

	function isVisible(el, rect) {
		if (rect.width <= 0 || rect.height <= 0) return false;
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden' || style.pointerEvents === 'none') return false;
		const vw = window.innerWidth, vh = window.innerHeight;
		return rect.right > 0 && rect.bottom > 0 && rect.left < vw && rect.top < vh;
	}

	function sizeOk(el, rect, score) {
		const nativeInteractive = ['a', 'button', 'input', 'select', 'textarea', 'option', 'summary'];
		if (nativeInteractive.includes(el.tagName.toLowerCase())) return true;
		return rect.width >= 18 && rect.height >= 18 && (rect.width * rect.height) >= 320;
	}

	function collectAllNodes(root, out) {
		const walker = document.createTreeWalker(root, NodeFilter.SHOW_ELEMENT, {
			acceptNode(node) {
				if (node.id === OVERLAY_ID) return NodeFilter.FILTER_REJECT;
				return NodeFilter.FILTER_ACCEPT;
			}
		});
		let node = walker.currentNode;
		while (node) {
			out.push(node);
			if (node.shadowRoot) collectAllNodes(node.shadowRoot, out);
			node = walker.nextNode();
		}
	}

	function accessibleText(el) {
		const aria = el.getAttribute('aria-label');
		if (aria) return aria;
		const text = (el.innerText || el.textContent || '').trim();
		return text;
	}

	function rectsOverlapRatio(a, b) {
		const x1 = Math.max(a.left, b.left), y1 = Math.max(a.top, b.top);
		const x2 = Math.min(a.right, b.right), y2 = Math.min(a.bottom, b.bottom);
		if (x2 <= x1 || y2 <= y1) return 0;
		const overlap = (x2 - x1) * (y2 - y1);
		const smaller = Math.min(a.width * a.height, b.width * b.height);
		if (smaller <= 0) return 0;
		return overlap / smaller;
	}

	waitForStability().then(() => {
		removeOverlay();

		const all = [];
		collectAllNodes(document.documentElement, all);

		const scored = [];
		for (const el of all) {
			const score = interactiveScore(el);
			if (score <= 0) continue;
			const rect = el.getBoundingClientRect();
			if (!isVisible(el, rect)) continue;
			if (!sizeOk(el, rect, score)) continue;
			scored.push({ el, score, rect });
		}

		// Ancestor dedup: drop weak candidates (score<=2) whose ancestor within depth 8 scores >=2.
		const strongSet = new Set(scored.filter(c => c.score >= 2).map(c => c.el));
		const deduped = scored.filter((c) => {
			if (c.score > 2) return true;
			let node = c.el.parentElement;
			for (let depth = 0; depth < 8 && node; depth++, node = node.parentElement) {
				if (strongSet.has(node)) return false;
			}
			return true;
		});

		deduped.sort((a, b) => {
			if (b.score !== a.score) return b.score - a.score;
			return (b.rect.width * b.rect.height) - (a.rect.width * a.rect.height);
		});

		const accepted = [];
		for (const cand of deduped) {
			let overlaps = false;
			for (const acc of accepted) {
				if (rectsOverlapRatio(cand.rect, acc.rect) > 0.92) { overlaps = true; break; }
			}
			if (!overlaps) accepted.push(cand);
			if (accepted.length >= maxMarks) break;
		}

		const elements = [];
		accepted.forEach((cand, idx) => {
			cand.el.setAttribute(MARK_ATTR, String(idx));
			const rect = cand.rect;
			elements.push({
				id: idx,
				tag: cand.el.tagName.toLowerCase(),
				role: cand.el.getAttribute('role') || '',
				text: accessibleText(cand.el).slice(0, 80),
				ariaLabel: (cand.el.getAttribute('aria-label') || '').slice(0, 80),
				title: (cand.el.getAttribute('title') || '').slice(0, 80),
				href: cand.el.getAttribute('href') || '',
				score: cand.score,
				x: rect.left, y: rect.top, width: rect.width, height: rect.height,
			});
		});

		renderOverlay(accepted);
		resolve({ count: elements.length, elements });
	});

	function renderOverlay(accepted) {
		const overlay = document.createElement('div');
		overlay.id = OVERLAY_ID;
		overlay.style.cssText = 'position:fixed;top:0;left:0;width:100%;height:100%;z-index:2147483647;pointer-events:none;';
		document.body.appendChild(overlay);

		const placedLabels = [];
		const targetRects = accepted.map(c => c.rect);

		accepted.forEach((cand, idx) => {
			const rect = cand.rect;
			const box = document.createElement('div');
			box.style.cssText = 'position:fixed;border:2px solid red;pointer-events:none;' +
				'left:' + rect.left + 'px;top:' + rect.top + 'px;width:' + rect.width + 'px;height:' + rect.height + 'px;';
			overlay.appendChild(box);

			const labelW = 20, labelH = 16;
			const candidates = [
				{ x: rect.left - labelW, y: rect.top - labelH, pref: 0 },
				{ x: rect.right, y: rect.top - labelH, pref: 0 },
				{ x: rect.left - labelW, y: rect.bottom, pref: 1 },
				{ x: rect.right, y: rect.bottom, pref: 1 },
				{ x: rect.left - labelW, y: rect.top + rect.height / 2 - labelH / 2, pref: 2 },
				{ x: rect.right, y: rect.top + rect.height / 2 - labelH / 2, pref: 2 },
				{ x: rect.left + 2, y: rect.top + 2, pref: 3 },
			];

			let best = null, bestScore = Infinity;
			const vw = window.innerWidth, vh = window.innerHeight;
			for (const c of candidates) {
				const lrect = { left: c.x, top: c.y, right: c.x + labelW, bottom: c.y + labelH, width: labelW, height: labelH };
				let overflow = 0;
				if (lrect.left < 0) overflow += -lrect.left;
				if (lrect.top < 0) overflow += -lrect.top;
				if (lrect.right > vw) overflow += lrect.right - vw;
				if (lrect.bottom > vh) overflow += lrect.bottom - vh;

				let targetOverlap = 0;
				for (const t of targetRects) {
					targetOverlap += rectsOverlapRatio(lrect, t) * Math.min(lrect.width * lrect.height, t.width * t.height);
				}
				let labelOverlap = 0;
				for (const p of placedLabels) {
					labelOverlap += rectsOverlapRatio(lrect, p) * Math.min(lrect.width * lrect.height, p.width * p.height);
				}
				let ownOverlap = rectsOverlapRatio(lrect, rect) * Math.min(lrect.width * lrect.height, rect.width * rect.height);

				const score = overflow * 220 + targetOverlap * 1.25 + labelOverlap * 2.8 + ownOverlap * 4.5 + c.pref;
				if (score < bestScore) { bestScore = score; best = lrect; }
			}

			if (best) {
				best.left = Math.max(0, Math.min(best.left, vw - labelW));
				best.top = Math.max(0, Math.min(best.top, vh - labelH));
				placedLabels.push(best);

				const label = document.createElement('div');
				label.textContent = String(idx);
				label.style.cssText = 'position:fixed;background:red;color:white;font:11px monospace;' +
					'padding:1px 3px;border-radius:2px;left:' + best.left + 'px;top:' + best.top + 'px;';
				overlay.appendChild(label);
			}
		});
	}
})
`

// toggleOverlayScript shows or hides the overlay container without
// re-running discovery, used to produce the clean operator stream when
// debug marks are off.
const toggleOverlayScript = `
(visible) => {
	const el = document.getElementById('__som_overlay__');
	if (el) el.style.display = visible ? '' : 'none';
	return true;
}
`
