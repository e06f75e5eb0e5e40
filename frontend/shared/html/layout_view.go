package html

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:1.5rem;color:#212529}
table{border-collapse:collapse;margin-top:1rem}th,td{border:1px solid #ccc;padding:.3rem .6rem}
th{background:#3c3c3c;color:#fff}tr.total td{background:#e1f5fe;font-weight:bold}
tr.group td{background:#e8f5e9}tr.project td{background:#f9fbe7}tr.catchlist td{background:#e3f2fd}
.alert{padding:.6rem 1rem;background:#fff3cd;border:1px solid #ffe69c;margin:1rem 0}
.tabs form{display:inline}.tabs button.active{font-weight:bold}
td.num{text-align:right}.pend-count{background:#388e3c;color:#fff}.pend-leaf{background:#f5f5f5;color:#dc3545}`

// Layout wraps a page body in the shared document shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`+templ.EscapeString(title)+`</title><style>`+pageStyle+`</style></head><body>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
