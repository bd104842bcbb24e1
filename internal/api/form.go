package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/billdoc/internal/layout"
	"github.com/dgallion1/billdoc/internal/preview"
)

const formTitle = "Bill Document Generator"

const instructionsMarkdown = `Select a bill screenshot for each room. **Empty rooms are skipped**; the
remaining images are packed in room order, %d per page.

- Supported formats: %s
- Re-selecting a room replaces its image.
- When asked for a file name, cancel to keep editing.
`

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	doc, err := buildForm(s.cfg.Layout, s.cfg.APIKey != "")
	if err != nil {
		s.log.Error("build form failed", "error", err)
		http.Error(w, "failed to render form", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		s.log.Error("render form failed", "error", err)
		http.Error(w, "failed to render form", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// buildForm assembles the single-window form: one row per slot, a generate
// action, a progress bar and a status line.
func buildForm(cfg layout.Config, needsKey bool) (*html.Node, error) {
	instructions, err := renderInstructions(cfg)
	if err != nil {
		return nil, err
	}

	page := el("main", nil,
		el("h1", nil, text(formTitle)),
	)
	page.AppendChild(instructions)

	if needsKey {
		page.AppendChild(el("p", attrs("class", "key"),
			el("label", attrs("for", "api-key"), text("API key ")),
			el("input", attrs("id", "api-key", "type", "password", "autocomplete", "off")),
		))
	}

	grid := el("div", attrs("class", "slots"))
	accept := strings.Join(preview.Extensions(), ",")
	for i := 0; i < cfg.SlotCount; i++ {
		n := strconv.Itoa(i + 1)
		grid.AppendChild(el("div", attrs("class", "slot", "id", "slot-"+n),
			el("label", attrs("for", "file-"+n), text(layout.RoomLabel(i)+" Bill:")),
			el("span", attrs("class", "state"), text("No image selected")),
			el("input", attrs("id", "file-"+n, "type", "file", "accept", accept, "data-slot", n)),
			el("img", attrs("class", "preview", "alt", layout.RoomLabel(i)+" preview", "hidden", "")),
		))
	}
	page.AppendChild(grid)

	page.AppendChild(el("p", attrs("class", "actions"),
		el("button", attrs("id", "generate", "type", "button"), text("Generate Document")),
	))
	page.AppendChild(el("progress", attrs("id", "progress", "max", "100", "value", "0")))
	page.AppendChild(el("p", attrs("id", "status"), text("Ready")))

	script := el("script", nil)
	script.AppendChild(&html.Node{Type: html.TextNode, Data: formScript})

	head := el("head", nil,
		el("meta", attrs("charset", "utf-8")),
		el("title", nil, text(formTitle)),
	)
	style := el("style", nil)
	style.AppendChild(&html.Node{Type: html.TextNode, Data: formStyle})
	head.AppendChild(style)

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root.AppendChild(el("html", attrs("lang", "en"),
		head,
		el("body", nil, page, script),
	))
	return root, nil
}

// renderInstructions converts the Markdown help text into a node subtree.
func renderInstructions(cfg layout.Config) (*html.Node, error) {
	src := fmt.Sprintf(instructionsMarkdown, cfg.ImagesPerPage, strings.ToUpper(strings.Join(trimDots(preview.Extensions()), ", ")))
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return nil, fmt.Errorf("render instructions: %w", err)
	}

	section := el("section", attrs("class", "instructions"))
	nodes, err := html.ParseFragment(&buf, section)
	if err != nil {
		return nil, fmt.Errorf("parse instructions: %w", err)
	}
	for _, n := range nodes {
		section.AppendChild(n)
	}
	return section, nil
}

func trimDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	return out
}

func el(tag string, attr []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attr,
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

const formStyle = `
body { font-family: Arial, sans-serif; margin: 2rem; }
h1 { font-size: 16pt; }
.slots { display: grid; grid-template-columns: repeat(2, minmax(18rem, 1fr)); gap: 1rem; }
.slot { border: 1px solid #ccc; padding: .5rem; display: grid; gap: .25rem; }
.slot .state { color: #555; font-size: .9rem; }
.slot img.preview { max-width: 150px; max-height: 150px; }
progress { width: 100%; }
#status { color: #333; }
`

const formScript = `
(function () {
  var keyInput = document.getElementById("api-key");
  var statusEl = document.getElementById("status");
  var progressEl = document.getElementById("progress");
  var button = document.getElementById("generate");
  var sessionID = null;

  function headers(extra) {
    var h = Object.assign({}, extra || {});
    if (keyInput && keyInput.value) { h["Authorization"] = "Bearer " + keyInput.value; }
    return h;
  }

  async function call(method, url, body, extra) {
    var resp = await fetch(url, { method: method, headers: headers(extra), body: body });
    var data = null;
    if (resp.status !== 204) {
      try { data = await resp.json(); } catch (e) { data = null; }
    }
    return { resp: resp, data: data };
  }

  function errorOf(res) {
    return (res.data && res.data.error) || res.resp.statusText;
  }

  async function ensureSession() {
    if (sessionID) { return sessionID; }
    var res = await call("POST", "/api/sessions");
    if (!res.resp.ok) { throw new Error(errorOf(res)); }
    sessionID = res.data.session_id;
    return sessionID;
  }

  document.querySelectorAll("input[type=file][data-slot]").forEach(function (input) {
    input.addEventListener("change", async function () {
      var slot = input.dataset.slot;
      var file = input.files[0];
      if (!file) { return; }
      var row = document.getElementById("slot-" + slot);
      try {
        var id = await ensureSession();
        var form = new FormData();
        form.append("file", file);
        var res = await call("PUT", "/api/sessions/" + id + "/slots/" + slot, form);
        if (!res.resp.ok) { alert(errorOf(res)); return; }
        row.querySelector(".state").textContent = res.data.filename;
        var pv = await fetch("/api/sessions/" + id + "/slots/" + slot + "/preview", { headers: headers() });
        if (pv.ok) {
          var img = row.querySelector("img");
          img.src = URL.createObjectURL(await pv.blob());
          img.hidden = false;
        }
      } catch (e) {
        alert("Failed to load image: " + e.message);
      }
    });
  });

  async function download(id, filename) {
    var resp = await fetch("/api/sessions/" + id + "/document", { headers: headers() });
    if (!resp.ok) { return; }
    var a = document.createElement("a");
    a.href = URL.createObjectURL(await resp.blob());
    a.download = filename;
    document.body.appendChild(a);
    a.click();
    a.remove();
  }

  button.addEventListener("click", async function () {
    var id, timer;
    try {
      id = await ensureSession();
      var snap = await call("GET", "/api/sessions/" + id);
      if (!snap.resp.ok) { throw new Error(errorOf(snap)); }
      if (!snap.data.slots.some(function (s) { return s.filled; })) {
        alert("Please select at least one bill screenshot.");
        return;
      }
      var name = window.prompt("Save document as", "bills.docx");
      button.disabled = true;
      progressEl.value = 0;
      statusEl.textContent = "Generating document...";
      timer = setInterval(async function () {
        var s = await call("GET", "/api/sessions/" + id);
        if (s.resp.ok) { progressEl.value = s.data.progress; }
      }, 200);
      var res = await call("POST", "/api/sessions/" + id + "/generate",
        JSON.stringify({ filename: name || "" }), { "Content-Type": "application/json" });
      clearInterval(timer);
      if (res.resp.status === 204) {
        progressEl.value = 0;
        statusEl.textContent = "Ready";
        return;
      }
      if (!res.resp.ok) {
        progressEl.value = 0;
        statusEl.textContent = "Ready";
        alert(errorOf(res));
        return;
      }
      progressEl.value = 100;
      statusEl.textContent = "Document saved to " + res.data.filename;
      if (res.data.warnings.length) {
        alert("Some images could not be added:\n" + res.data.warnings.join("\n"));
      }
      await download(id, res.data.filename);
    } catch (e) {
      clearInterval(timer);
      progressEl.value = 0;
      statusEl.textContent = "Ready";
      alert(e.message);
    } finally {
      button.disabled = false;
    }
  });
})();
`
