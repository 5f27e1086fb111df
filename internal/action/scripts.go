package action

// locateScript finds the element marked with the given data-som-id,
// scrolls it into view, and returns its rect plus a derived stable
// selector the trace replay script can use later instead of the mark id
// (which only exists for the lifetime of one perception pass).
const locateScript = `
(markId) => {
	const el = document.querySelector('[data-som-id="' + markId + '"]');
	if (!el) return { found: false };

	el.scrollIntoView({ block: 'center', inline: 'center', behavior: 'instant' });
	const rect = el.getBoundingClientRect();

	const tag = el.tagName.toLowerCase();
	const fillableTags = ['textarea'];
	const role = (el.getAttribute('role') || '').toLowerCase();
	const fillable = fillableTags.includes(tag) ||
		(tag === 'input' && el.type !== 'button' && el.type !== 'submit' && el.type !== 'hidden' && el.type !== 'checkbox' && el.type !== 'radio') ||
		el.isContentEditable ||
		role === 'textbox' || role === 'searchbox';

	function stableSelector(node) {
		if (node.id) return '#' + CSS.escape(node.id);
		const testId = node.getAttribute('data-testid');
		if (testId) return '[data-testid="' + testId + '"]';
		if (node.tagName === 'INPUT') {
			if (node.name) return 'input[name="' + node.name + '"]';
			if (node.placeholder) return 'input[placeholder="' + node.placeholder + '"]';
		}
		if (node.tagName === 'A' && node.getAttribute('href')) {
			return 'a[href="' + node.getAttribute('href') + '"]';
		}
		const aria = node.getAttribute('aria-label');
		if (aria) return '[aria-label="' + aria + '"]';

		const parts = [];
		let cur = node;
		for (let depth = 0; depth < 7 && cur && cur !== document.body; depth++) {
			const parent = cur.parentElement;
			if (!parent) break;
			const siblings = Array.from(parent.children).filter(c => c.tagName === cur.tagName);
			const idx = siblings.indexOf(cur) + 1;
			parts.unshift(cur.tagName.toLowerCase() + ':nth-of-type(' + idx + ')');
			cur = parent;
		}
		return parts.length ? parts.join(' > ') : tag;
	}

	return {
		found: true,
		x: rect.left, y: rect.top, width: rect.width, height: rect.height,
		fillable,
		selector: stableSelector(el),
	};
}
`

// rippleScript draws a brief click-feedback ripple at (x, y): a small
// solid dot on mouse-down, a larger outlined ring on mouse-up, both
// self-removing so they never accumulate in the DOM.
const rippleScript = `
(x, y, phase) => {
	const el = document.createElement('div');
	const solid = phase === 'down';
	const size = solid ? 14 : 28;
	el.style.cssText = 'position:fixed;pointer-events:none;z-index:2147483647;' +
		'left:' + (x - size / 2) + 'px;top:' + (y - size / 2) + 'px;' +
		'width:' + size + 'px;height:' + size + 'px;border-radius:50%;' +
		(solid ? 'background:rgba(255,80,80,0.55);' : 'border:2px solid rgba(255,80,80,0.75);background:transparent;') +
		'transition:opacity 250ms ease-out,transform 250ms ease-out;opacity:1;transform:scale(1);';
	document.body.appendChild(el);
	requestAnimationFrame(() => {
		el.style.opacity = '0';
		el.style.transform = 'scale(1.6)';
	});
	setTimeout(() => el.remove(), 300);
	return true;
}
`

// nearestFillableScript locates the visible, fillable element whose center
// is closest to (cx, cy), used as the type-action fallback when the marked
// element itself cannot accept text.
const nearestFillableScript = `
(cx, cy) => {
	const candidates = Array.from(document.querySelectorAll('input, textarea, [contenteditable="true"], [role="textbox"], [role="searchbox"]'));
	let best = null, bestDist = Infinity;
	for (const el of candidates) {
		if (el.tagName === 'INPUT' && ['button','submit','hidden','checkbox','radio'].includes(el.type)) continue;
		const rect = el.getBoundingClientRect();
		if (rect.width <= 0 || rect.height <= 0) continue;
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		const ecx = rect.left + rect.width / 2, ecy = rect.top + rect.height / 2;
		const dist = Math.hypot(ecx - cx, ecy - cy);
		if (dist < bestDist) { bestDist = dist; best = { x: rect.left, y: rect.top, width: rect.width, height: rect.height }; }
	}
	return best ? { found: true, ...best } : { found: false };
}
`
