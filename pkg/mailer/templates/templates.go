package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

// defaultFn backs {{ .Value | default "Fallback" }}; blank strings count as empty.
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() || rv.IsZero() {
			return fallback
		}
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"upper":   strings.ToUpper,
		"default": defaultFn,
	}
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func parse(filename string) (executor, error) {
	if strings.HasSuffix(filename, ".html.tmpl") {
		return htmpl.New(filename).Funcs(htmpl.FuncMap(baseFuncs())).ParseFS(FS, filename)
	}
	return texttpl.New(filename).Funcs(texttpl.FuncMap(baseFuncs())).ParseFS(FS, filename)
}

// Render executes <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
// Only the html part is escaped.
func Render(name string, data any) (subject, text, html string, err error) {
	parts := []*string{&subject, &text, &html}
	for i, kind := range []string{"subject", "text", "html"} {
		filename := name + "." + kind + ".tmpl"
		tpl, err := parse(filename)
		if err != nil {
			return "", "", "", fmt.Errorf("parse %q: %w", filename, err)
		}
		var buf bytes.Buffer
		if err := tpl.Execute(&buf, data); err != nil {
			return "", "", "", fmt.Errorf("exec %q: %w", filename, err)
		}
		*parts[i] = buf.String()
	}
	return strings.TrimSpace(subject), text, html, nil
}
