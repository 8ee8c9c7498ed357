package render

import "html/template"

// The shared card template. Preview and print both execute this exact
// markup so the two paths cannot drift apart; only the resolved content
// differs. Coordinates are plain left/top offsets in card-local pixels.
const cardTemplateString = `{{define "card"}}<div class="card">
  {{- if .Background}}
  <img class="card-bg" src="{{.Background | safeURL}}" alt="">
  {{- end}}
  {{- if .Photo}}
  <div class="card-field card-photo" data-field="photo" style="left: {{.Photo.X}}px; top: {{.Photo.Y}}px;">
    {{- if .PhotoState.Resolved}}
    <img src="{{.PhotoURL | safeURL}}" alt="">
    {{- else if .PhotoState.Failed}}
    <span class="photo-error">Erro ao carregar foto</span>
    {{- else}}
    <span class="photo-missing">Sem foto</span>
    {{- end}}
  </div>
  {{- end}}
  {{- range .Fields}}
  <div class="card-field card-{{.Field}}" data-field="{{.Field}}" style="left: {{.X}}px; top: {{.Y}}px;">{{.Label}}{{.Value}}</div>
  {{- end}}
</div>{{end}}`

const cardCSS = `
    .card {
      width: 825px;
      height: 260px;
      position: relative;
      overflow: hidden;
      background: white;
    }
    .card-bg {
      position: absolute;
      inset: 0;
      width: 100%;
      height: 100%;
      object-fit: cover;
    }
    .card-field {
      position: absolute;
      font-size: 0.85em;
      text-transform: uppercase;
      white-space: nowrap;
    }
    .card-name, .card-dependent_name {
      font-size: 0.95em;
      font-weight: bold;
    }
    .card-photo {
      width: 100px;
      height: 130px;
      background: #f3f4f6;
      border: 1px solid #e5e7eb;
      overflow: hidden;
      display: flex;
      align-items: center;
      justify-content: center;
    }
    .card-photo img {
      width: 100%;
      height: 100%;
      object-fit: cover;
    }
    .photo-missing, .photo-error {
      font-size: 11px;
      color: #9ca3af;
      text-align: center;
      text-transform: none;
    }`

// previewTemplateString renders one card against placeholder data on a
// standalone surface, with a faint 50px alignment grid behind it.
const previewTemplateString = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="UTF-8">
  <style>
    body {
      margin: 0;
      padding: 0;
      font-family: Arial, sans-serif;
    }
    .preview-surface {
      position: relative;
      width: 825px;
      height: 260px;
      border: 1px solid #d1d5db;
    }
    .preview-grid {
      position: absolute;
      inset: 0;
      background-image:
        linear-gradient(to right, rgba(156,163,175,0.25) 1px, transparent 1px),
        linear-gradient(to bottom, rgba(156,163,175,0.25) 1px, transparent 1px);
      background-size: 50px 50px;
      pointer-events: none;
    }
` + cardCSS + `
  </style>
</head>
<body>
  <div class="preview-surface">
    <div class="preview-grid"></div>
    {{template "card" .}}
  </div>
</body>
</html>
`

// printTemplateString composes camera-ready A4 sheets, exactly four cards
// per physical page. A card is never split across pages.
const printTemplateString = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="UTF-8">
  <style>
    @page {
      size: 210mm 297mm;
      margin: 0;
    }
    body {
      margin: 0;
      padding: 0;
      font-family: Arial, sans-serif;
      -webkit-print-color-adjust: exact;
      print-color-adjust: exact;
    }
    .print-page {
      width: 210mm;
      min-height: 297mm;
      padding: 10mm;
      box-sizing: border-box;
      page-break-after: always;
      display: flex;
      flex-direction: column;
      gap: 10mm;
    }
    .print-page:last-child {
      page-break-after: auto;
    }
    .card-item {
      margin: 0 auto;
      page-break-inside: avoid;
    }
` + cardCSS + `
  </style>
</head>
<body>
  {{- range .Pages}}
  <div class="print-page">
    {{- range .}}
    <div class="card-item">
      {{template "card" .}}
    </div>
    {{- end}}
  </div>
  {{- end}}
</body>
</html>
`

var templateFuncs = template.FuncMap{
	// Background and photo sources may be presigned URLs or data: URIs; the
	// caller already controls where they come from.
	"safeURL": func(s string) template.URL { return template.URL(s) },
}

var (
	previewTemplate = template.Must(template.New("preview").
			Funcs(templateFuncs).
			Parse(cardTemplateString + previewTemplateString))

	printTemplate = template.Must(template.New("print").
			Funcs(templateFuncs).
			Parse(cardTemplateString + printTemplateString))
)
