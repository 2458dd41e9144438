package shell

import (
	"io"
	"net/http"
)

// Home serves the embedded billing page.
func (h *Handler) Home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, homePage)
}

const homePage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Counterbill</title>
<style>
body { font-family: system-ui, sans-serif; margin: 1.5rem auto; max-width: 60rem; color: #222; }
section { margin-bottom: 1.5rem; }
h1 { margin-bottom: 0.2rem; }
h2 { font-size: 1rem; border-bottom: 1px solid #ddd; padding-bottom: 0.2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.5rem; text-align: left; }
td.num { text-align: right; }
input, select, button { padding: 0.25rem 0.4rem; margin-right: 0.3rem; }
#error { color: #a00; }
#catalog-missing { color: #850; }
.totals b { font-variant-numeric: tabular-nums; }
</style>
</head>
<body>
<h1>Counterbill</h1>
<p id="error" hidden></p>
<p id="catalog-missing" hidden>No products file found. Point the reload box below at a catalog CSV.</p>

<section>
<h2>Add item</h2>
<select id="product"></select>
<input id="qty" type="number" min="1" value="1" size="4">
<button id="add">Add</button>
</section>

<section>
<h2>Cart</h2>
<table id="cart">
<thead><tr><th>Code</th><th>Item</th><th>Price</th><th>Qty</th><th>Line Total</th><th></th></tr></thead>
<tbody></tbody>
</table>
<p>
<button id="clear">Clear cart</button>
<button id="export">Export CSV</button>
</p>
</section>

<section class="totals">
<h2>Bill</h2>
<label>Customer <input id="customer" size="24"></label>
<label>GST % <input id="rate" size="6"></label>
<button id="apply">Apply</button>
<p>Subtotal: <b id="subtotal"></b></p>
<p>GST (<span id="ratePercent"></span>%): <b id="taxTotal"></b> (CGST <span id="cgst"></span> + SGST <span id="sgst"></span>)</p>
<p>Grand Total: <b id="grand"></b></p>
<button id="generate">Generate invoice</button>
</section>

<section>
<h2>Invoices</h2>
<ul id="invoices"></ul>
</section>

<section>
<h2>Catalog</h2>
<input id="catalogPath" size="48" placeholder="path to products CSV (empty re-reads current)">
<button id="reload">Reload</button>
</section>

<script>
var state = null;

function showError(msg) {
  var el = document.getElementById('error');
  el.textContent = msg || '';
  el.hidden = !msg;
}

async function call(url, opts) {
  var res = await fetch(url, opts);
  var body = null;
  try { body = await res.json(); } catch (e) {}
  if (!res.ok) {
    var msg = (body && body.error && body.error.message) ? body.error.message : 'request failed (' + res.status + ')';
    throw new Error(msg);
  }
  return body;
}

function jsonOpts(method, payload) {
  return { method: method, headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(payload) };
}

function render() {
  if (!state) { return; }
  document.getElementById('catalog-missing').hidden = !state.catalogMissing;

  var select = document.getElementById('product');
  var selected = select.value;
  select.innerHTML = '';
  (state.products || []).forEach(function (p) {
    var opt = document.createElement('option');
    opt.value = p.code;
    opt.textContent = p.code + ' | ' + p.name + ' | ' + p.unitPrice;
    select.appendChild(opt);
  });
  if (selected) { select.value = selected; }

  var tbody = document.querySelector('#cart tbody');
  tbody.innerHTML = '';
  (state.lines || []).forEach(function (l) {
    var tr = document.createElement('tr');
    [[l.code, ''], [l.name, ''], [l.unitPrice, 'num'], [l.qty, 'num'], [l.lineTotal, 'num']].forEach(function (cell) {
      var td = document.createElement('td');
      td.textContent = cell[0];
      if (cell[1]) { td.className = cell[1]; }
      tr.appendChild(td);
    });
    var td = document.createElement('td');
    var btn = document.createElement('button');
    btn.textContent = 'Remove';
    btn.addEventListener('click', function () { removeItem(l.code); });
    td.appendChild(btn);
    tr.appendChild(td);
    tbody.appendChild(tr);
  });

  document.getElementById('customer').value = state.customerName || '';
  document.getElementById('rate').value = state.rateInput || '';
  var t = state.totals || {};
  document.getElementById('subtotal').textContent = t.subtotal;
  document.getElementById('ratePercent').textContent = t.ratePercent;
  document.getElementById('taxTotal').textContent = t.taxTotal;
  document.getElementById('cgst').textContent = t.cgst;
  document.getElementById('sgst').textContent = t.sgst;
  document.getElementById('grand').textContent = t.grandTotal;
}

function setState(next) {
  state = next;
  showError('');
  render();
}

async function refresh() {
  try {
    var body = await call('/api/v1/state');
    setState(body.data);
  } catch (e) { showError(e.message); }
}

async function loadInvoices() {
  try {
    var body = await call('/api/v1/invoices');
    var list = document.getElementById('invoices');
    list.innerHTML = '';
    (body.data || []).forEach(function (inv) {
      var li = document.createElement('li');
      var a = document.createElement('a');
      a.href = inv.previewUrl;
      a.target = '_blank';
      a.textContent = 'Invoice #' + inv.number;
      li.appendChild(a);
      list.appendChild(li);
    });
  } catch (e) { showError(e.message); }
}

async function addItem() {
  var code = document.getElementById('product').value;
  var qty = parseInt(document.getElementById('qty').value, 10);
  if (!code) { showError('no product selected'); return; }
  try {
    var body = await call('/api/v1/cart/items', jsonOpts('POST', { code: code, qty: qty }));
    setState(body.data);
  } catch (e) { showError(e.message); }
}

async function removeItem(code) {
  try {
    var body = await call('/api/v1/cart/items/' + encodeURIComponent(code), { method: 'DELETE' });
    setState(body.data);
  } catch (e) { showError(e.message); }
}

async function clearCart() {
  if (!confirm('Clear the cart?')) { return; }
  try {
    var body = await call('/api/v1/cart/clear', { method: 'POST' });
    setState(body.data);
  } catch (e) { showError(e.message); }
}

async function applyDetails() {
  try {
    var body = await call('/api/v1/session', jsonOpts('PUT', {
      customerName: document.getElementById('customer').value,
      taxRate: document.getElementById('rate').value
    }));
    setState(body.data);
    if (body.data.rateFellBack) { showError('GST rate not understood, using the default'); }
  } catch (e) { showError(e.message); }
}

async function generateInvoice() {
  try {
    var details = await call('/api/v1/session', jsonOpts('PUT', {
      customerName: document.getElementById('customer').value,
      taxRate: document.getElementById('rate').value
    }));
    var token = details.data.confirmToken;
    var body = await call('/api/v1/invoices', jsonOpts('POST', { confirmToken: token }));
    setState(body.data.state);
    window.open(body.data.previewUrl, '_blank');
    loadInvoices();
  } catch (e) { showError(e.message); }
}

function exportCart() {
  if (!state || !(state.lines || []).length) { showError('cart is empty'); return; }
  window.location.href = '/api/v1/cart/export';
}

async function reloadCatalog() {
  try {
    var path = document.getElementById('catalogPath').value;
    var body = await call('/api/v1/catalog/reload', jsonOpts('POST', { path: path }));
    setState(body.data.state);
  } catch (e) { showError(e.message); }
}

document.getElementById('add').addEventListener('click', addItem);
document.getElementById('clear').addEventListener('click', clearCart);
document.getElementById('export').addEventListener('click', exportCart);
document.getElementById('apply').addEventListener('click', applyDetails);
document.getElementById('generate').addEventListener('click', generateInvoice);
document.getElementById('reload').addEventListener('click', reloadCatalog);

refresh();
loadInvoices();
</script>
</body>
</html>
`
