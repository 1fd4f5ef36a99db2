package browser

const handleAttr = "data-tbs-handle"

// snapshotScript collects visible elements of the requested tags. Every
// element gets a handle attribute that later interactions address it by.
// File inputs are kept even when hidden, since pages usually hide them.
const snapshotScript = `(tags) => {
	try {
		const result = [];
		const seen = new Set();
		window.__tbsHandleSeq = window.__tbsHandleSeq || 0;

		const handleOf = (el) => {
			let h = el.getAttribute('` + handleAttr + `');
			if (!h) {
				window.__tbsHandleSeq += 1;
				h = 'h' + window.__tbsHandleSeq;
				el.setAttribute('` + handleAttr + `', h);
			}
			return h;
		};

		const isFileInput = (el) => el.tagName.toLowerCase() === 'input' && el.type === 'file';

		const isVisible = (el, rect) => {
			const style = window.getComputedStyle(el);
			return (
				rect.width > 0 &&
				rect.height > 0 &&
				style.display !== 'none' &&
				style.visibility !== 'hidden' &&
				style.opacity !== '0'
			);
		};

		const all = document.querySelectorAll(tags.join(','));
		for (const el of all) {
			if (seen.has(el)) continue;
			seen.add(el);

			const rect = el.getBoundingClientRect();
			if (!isFileInput(el) && !isVisible(el, rect)) continue;

			let text = (el.innerText || '').trim();
			if (text.length > 500) text = text.substring(0, 500);

			let html = el.innerHTML || '';
			if (html.length > 2000) html = html.substring(0, 2000);

			result.push({
				handle: handleOf(el),
				tag: el.tagName.toLowerCase(),
				text: text,
				html: html,
				placeholder: el.getAttribute('placeholder') || '',
				ariaLabel: el.getAttribute('aria-label') || '',
				role: el.getAttribute('role') || '',
				type: el.getAttribute('type') || '',
				disabled: !!el.disabled || el.getAttribute('aria-disabled') === 'true',
				hasFileInput: isFileInput(el) || !!el.querySelector('input[type="file"]'),
				box: {
					x: Math.round(rect.left),
					y: Math.round(rect.top),
					width: Math.round(rect.width),
					height: Math.round(rect.height)
				}
			});
		}

		return result;
	} catch (e) {
		return [];
	}
}`

const findByHandle = `const el = document.querySelector('[` + handleAttr + `="' + arg.handle + '"]');
		if (!el) return {ok: false, reason: 'stale_handle'};`

const clickScript = `(arg) => {
	try {
		` + findByHandle + `
		el.scrollIntoView({behavior: 'instant', block: 'center'});
		el.click();
		return {ok: true};
	} catch (e) {
		return {ok: false, reason: e.message};
	}
}`

// setValueScript writes through the prototype setter so that frameworks
// wrapping the instance setter see the change, then notifies listeners.
const setValueScript = `(arg) => {
	try {
		` + findByHandle + `
		const proto = el.tagName.toLowerCase() === 'textarea'
			? window.HTMLTextAreaElement.prototype
			: window.HTMLInputElement.prototype;
		const setter = Object.getOwnPropertyDescriptor(proto, 'value').set;
		el.focus();
		setter.call(el, arg.value);
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return {ok: true};
	} catch (e) {
		return {ok: false, reason: e.message};
	}
}`

const attachFileScript = `(arg) => {
	try {
		` + findByHandle + `
		const input = (el.tagName.toLowerCase() === 'input' && el.type === 'file')
			? el
			: el.querySelector('input[type="file"]');
		if (!input) return {ok: false, reason: 'no_file_input'};

		const raw = atob(arg.data);
		const bytes = new Uint8Array(raw.length);
		for (let i = 0; i < raw.length; i++) bytes[i] = raw.charCodeAt(i);

		const file = new File([bytes], arg.name, {type: arg.type});
		const transfer = new DataTransfer();
		transfer.items.add(file);
		input.files = transfer.files;
		input.dispatchEvent(new Event('change', {bubbles: true}));
		return {ok: true};
	} catch (e) {
		return {ok: false, reason: e.message};
	}
}`

// pressKeyScript dispatches a synthetic keydown/keyup pair. For "End" on a
// text field it also moves the caret to the end, which synthetic events
// alone do not do.
const pressKeyScript = `(arg) => {
	try {
		const fire = (target) => {
			const init = {key: arg.key, code: arg.key, bubbles: true, cancelable: true};
			target.dispatchEvent(new KeyboardEvent('keydown', init));
			if (arg.key === 'End' && typeof target.setSelectionRange === 'function' && typeof target.value === 'string') {
				const end = target.value.length;
				target.setSelectionRange(end, end);
			}
			target.dispatchEvent(new KeyboardEvent('keyup', init));
			return {ok: true};
		};

		if (!arg.handle) return fire(document.activeElement || document.body);

		` + findByHandle + `
		el.focus();
		return fire(el);
	} catch (e) {
		return {ok: false, reason: e.message};
	}
}`

const bodyTextScript = `() => (document.body && document.body.innerText) || ''`

const locationScript = `() => ({href: location.href, host: location.host, readyState: document.readyState})`
