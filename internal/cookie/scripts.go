package cookie

import "encoding/json"

func unmarshalInto(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

// detectScript reports whether a cookie surface is visible: either a known
// selector matches, or a visible block-level element carries >=20 chars of
// text matching a cookie-related keyword.
const detectScript = `
(selectors, keywords) => {
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el && isVisible(el)) return true;
	}

	function isVisible(el) {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}

	const blocks = document.querySelectorAll('div, section, aside, dialog, [role="dialog"], [role="alertdialog"]');
	for (const el of blocks) {
		if (!isVisible(el)) continue;
		const text = (el.innerText || '').toLowerCase();
		if (text.length < 20) continue;
		for (const kw of keywords) {
			if (text.includes(kw)) return true;
		}
	}
	return false;
}
`

// containerTextScript finds the first accept-phrase button/link nested in a
// visible cookie-context container and returns a CSS selector for it, or ""
// if none is found. The selector is synthesised via a bounded id/attribute
// lookup since the element itself cannot cross the JS/Go boundary.
const containerTextScript = `
(phrases, keywords) => {
	function isVisible(el) {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}

	function selectorFor(el) {
		if (el.id) return '#' + CSS.escape(el.id);
		const testId = el.getAttribute('data-testid');
		if (testId) return '[data-testid="' + CSS.escape(testId) + '"]';
		let path = [];
		let node = el;
		let depth = 0;
		while (node && node.nodeType === 1 && depth < 7) {
			let part = node.tagName.toLowerCase();
			const parent = node.parentElement;
			if (parent) {
				const siblings = Array.from(parent.children).filter(c => c.tagName === node.tagName);
				if (siblings.length > 1) {
					part += ':nth-of-type(' + (siblings.indexOf(node) + 1) + ')';
				}
			}
			path.unshift(part);
			node = parent;
			depth++;
		}
		return path.join(' > ');
	}

	const containers = document.querySelectorAll('div, section, aside, dialog, [role="dialog"], [role="alertdialog"]');
	for (const container of containers) {
		if (!isVisible(container)) continue;
		const text = (container.innerText || '').toLowerCase();
		if (!keywords.some(kw => text.includes(kw))) continue;

		const candidates = container.querySelectorAll('button, a, [role="button"]');
		for (const cand of candidates) {
			if (!isVisible(cand)) continue;
			const label = (cand.innerText || cand.getAttribute('aria-label') || '').toLowerCase().trim();
			if (phrases.some(p => label.includes(p))) {
				return selectorFor(cand);
			}
		}
	}
	return '';
}
`

// visionScoreScript scores every on-screen accept-phrase candidate by phrase
// strength, cookie-context ancestry depth, vertical position, and element
// area, returning the centre coordinates of the highest-scoring candidate.
const visionScoreScript = `
(phrases) => {
	function isVisible(el) {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}

	function cookieAncestryScore(el) {
		let node = el;
		for (let depth = 0; depth < 6 && node; depth++, node = node.parentElement) {
			const blob = ((node.id || '') + ' ' + (node.className || '')).toLowerCase();
			if (blob.includes('cookie') || blob.includes('consent') || blob.includes('gdpr')) {
				return (6 - depth) / 6;
			}
		}
		return 0;
	}

	const vh = window.innerHeight || document.documentElement.clientHeight;
	let best = null;
	const candidates = document.querySelectorAll('button, a, [role="button"], [onclick]');

	for (const el of candidates) {
		if (!isVisible(el)) continue;
		const label = (el.innerText || el.getAttribute('aria-label') || '').toLowerCase().trim();
		if (!label) continue;

		let phraseScore = 0;
		for (const p of phrases) {
			if (label === p) { phraseScore = 1.0; break; }
			if (label.includes(p)) { phraseScore = Math.max(phraseScore, 0.7); }
		}
		if (phraseScore === 0) continue;

		const rect = el.getBoundingClientRect();
		const centerY = rect.top + rect.height / 2;
		const lowerHalfBonus = centerY > vh * 0.45 ? 1.0 : 0.3;
		const ancestry = cookieAncestryScore(el);
		const area = rect.width * rect.height;
		const areaScore = Math.min(area / 4000, 1.0);

		const score = phraseScore * 0.45 + ancestry * 0.25 + lowerHalfBonus * 0.2 + areaScore * 0.1;

		if (!best || score > best.score) {
			best = {
				found: true,
				x: rect.left + rect.width / 2,
				y: rect.top + rect.height / 2,
				score,
			};
		}
	}

	return best || { found: false, x: 0, y: 0, score: 0 };
}
`
