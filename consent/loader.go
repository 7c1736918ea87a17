package consent

import (
	"bytes"
	"html/template"
	"regexp"
)

// DefaultContainerID is used when no tag-manager container is configured.
const DefaultContainerID = "GTM-N5D27MCH"

var containerPattern = regexp.MustCompile(`^GTM-[A-Z0-9]+$`)

var (
	headTmpl = template.Must(template.New("head").Parse(`<script>
(function(w,d,s,l,i){w[l]=w[l]||[];w[l].push({'gtm.start':
new Date().getTime(),event:'gtm.js'});var f=d.getElementsByTagName(s)[0],
j=d.createElement(s),dl=l!='dataLayer'?'&l='+l:'';j.async=true;j.src=
'https://www.googletagmanager.com/gtm.js?id='+i+dl;f.parentNode.insertBefore(j,f);
})(window,document,'script','dataLayer',{{.}});
</script>`))
	noscriptTmpl = template.Must(template.New("noscript").Parse(`<noscript><iframe src="https://www.googletagmanager.com/ns.html?id={{.}}" height="0" width="0" style="display:none;visibility:hidden"></iframe></noscript>`))
)

// Loader renders the tag-manager tags for one container.
type Loader struct {
	ContainerID string
}

// NewLoader returns a Loader for id, or for DefaultContainerID when id is
// empty.
func NewLoader(id string) Loader {
	if id == "" {
		id = DefaultContainerID
	}
	return Loader{ContainerID: id}
}

// Enabled reports whether tags will be rendered for state.
func (l Loader) Enabled(s State) bool {
	return s == Accepted && containerPattern.MatchString(l.ContainerID)
}

// HeadScript returns the inline bootstrap script for <head>, or nothing
// unless the visitor accepted.
func (l Loader) HeadScript(s State) template.HTML {
	if !l.Enabled(s) {
		return ""
	}
	return l.exec(headTmpl)
}

// NoScript returns the iframe fallback placed at the top of <body>.
func (l Loader) NoScript(s State) template.HTML {
	if !l.Enabled(s) {
		return ""
	}
	return l.exec(noscriptTmpl)
}

func (l Loader) exec(t *template.Template) template.HTML {
	var buf bytes.Buffer
	if err := t.Execute(&buf, l.ContainerID); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}
