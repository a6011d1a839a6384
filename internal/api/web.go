package api

import "net/http"

func (a *API) handleWebInterface(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(webPage))
}

const webPage = `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>seisanbot - ポイント精算</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 2rem auto; padding: 0 1rem; }
.row { display: flex; gap: .5rem; margin-bottom: .4rem; }
.row input { flex: 1; }
#result p { margin: .2rem 0; }
.error { color: #b00020; }
</style>
</head>
<body>
<h1>ポイント精算</h1>
<label>人数 <input id="num" type="number" min="2" max="30" value="3"></label>
<label>計算時間の上限[sec] <input id="limit" type="number" min="1" max="600" value="30"></label>
<div id="rows"></div>
<button id="calc">計算</button>
<div id="result"></div>
<script>
const rows = document.getElementById("rows");
function renderRows() {
  const n = Math.max(2, Math.min(30, parseInt(document.getElementById("num").value || "3", 10)));
  const old = Array.from(rows.querySelectorAll(".row")).map(r => [r.children[0].value, r.children[1].value]);
  rows.innerHTML = "";
  for (let i = 0; i < n; i++) {
    const div = document.createElement("div");
    div.className = "row";
    const name = document.createElement("input");
    name.placeholder = "名前" + (i + 1);
    name.value = old[i] ? old[i][0] : String.fromCharCode(65 + i);
    const pt = document.createElement("input");
    pt.type = "number";
    pt.step = "1";
    pt.placeholder = "ポイント" + (i + 1);
    pt.value = old[i] ? old[i][1] : "0";
    div.append(name, pt);
    rows.append(div);
  }
}
function show(lines, isError) {
  const out = document.getElementById("result");
  out.innerHTML = "";
  for (const line of lines) {
    const p = document.createElement("p");
    p.textContent = line;
    if (isError) p.className = "error";
    out.append(p);
  }
}
async function calcSettle() {
  const balances = Array.from(rows.querySelectorAll(".row")).map(r => ({
    name: r.children[0].value,
    points: parseInt(r.children[1].value || "0", 10),
  }));
  const body = { balances, time_limit_seconds: parseInt(document.getElementById("limit").value || "30", 10) };
  show(["計算中..."], false);
  const resp = await fetch("/api/settle", { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify(body) });
  const data = await resp.json();
  if (resp.ok) {
    show(["結果"].concat(data.transfers.map(t => t.from + " から " + t.to + " への移動: " + t.amount + "pt")), false);
  } else if (data.best_known) {
    show([data.message].concat(data.best_known.map(t => t.from + " から " + t.to + " への移動: " + t.amount + "pt")), true);
  } else {
    show([data.message || data.error], true);
  }
}
document.getElementById("num").addEventListener("change", renderRows);
document.getElementById("calc").addEventListener("click", calcSettle);
renderRows();
</script>
</body>
</html>
`
