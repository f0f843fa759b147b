package server

import "net/http"

// handleIndex serves the search page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>wsfetch</title>
<style>
body { font-family: sans-serif; max-width: 900px; margin: 2em auto; padding: 0 1em; }
table { width: 100%; border-collapse: collapse; margin-top: 1em; }
th, td { text-align: left; padding: 0.4em 0.6em; border-bottom: 1px solid #ddd; }
input[type=text] { width: 60%; padding: 0.4em; }
button { padding: 0.4em 1em; }
#status { color: #666; margin-left: 1em; }
</style>
</head>
<body>
<h1>wsfetch</h1>
<form id="search-form">
<input type="text" id="query" placeholder="Search files...">
<button type="submit">Search</button>
<span id="status"></span>
</form>
<table id="results"></table>
<script>
const status = document.getElementById('status');
const results = document.getElementById('results');

document.getElementById('search-form').addEventListener('submit', async (e) => {
  e.preventDefault();
  const query = document.getElementById('query').value;
  if (!query) return;
  status.textContent = 'Searching...';
  const resp = await fetch('/api/search', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({query})
  });
  const data = await resp.json();
  if (!data.success) { status.textContent = data.error; return; }
  status.textContent = data.results.length + ' results';
  results.innerHTML = '<tr><th>Name</th><th>Size</th><th>Downloads</th><th></th></tr>' +
    data.results.map(r =>
      '<tr><td>' + r.name + '</td><td>' + r.sizeFormatted + '</td><td>' + r.downloads +
      '</td><td><button onclick="download(\'' + r.id + '\', this)">Download</button></td></tr>'
    ).join('');
});

async function download(fileId, btn) {
  btn.disabled = true;
  await fetch('/api/download', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({fileId})
  });
  const poll = setInterval(async () => {
    const resp = await fetch('/api/download/progress/' + fileId);
    if (resp.status === 404) { clearInterval(poll); btn.textContent = 'Done'; return; }
    const data = await resp.json();
    if (!data.success) { clearInterval(poll); return; }
    btn.textContent = data.download.status === 'error' ? 'Failed' : data.download.progress + '%';
    if (data.download.status !== 'downloading') clearInterval(poll);
  }, 1000);
}
</script>
</body>
</html>
`
