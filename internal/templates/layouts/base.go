package layouts

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Writer emits markup and remembers the first write error, so components
// can write a sequence of fragments and check once at the end.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup as-is.
func (w *Writer) Raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

// Text writes s HTML-escaped.
func (w *Writer) Text(s string) {
	w.Raw(templ.EscapeString(s))
}

// Rawf formats trusted markup. Every untrusted argument must already be
// escaped with templ.EscapeString.
func (w *Writer) Rawf(format string, args ...any) {
	w.Raw(fmt.Sprintf(format, args...))
}

// Attr writes ` name="value"` with value escaped.
func (w *Writer) Attr(name, value string) {
	w.Rawf(` %s="%s"`, name, templ.EscapeString(value))
}

// CSRF writes the hidden CSRF input for a POST form.
func (w *Writer) CSRF(ctx context.Context) {
	w.Rawf(`<input type="hidden" name="%s" value="%s">`, CSRFFieldName, templ.EscapeString(GetCSRFToken(ctx)))
}

// Component renders a child component into the same stream.
func (w *Writer) Component(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

// stylesheet is inlined so the storefront serves no static assets.
const stylesheet = `body{font-family:system-ui,sans-serif;margin:0;background:#1d1430;color:#f4f0ff}` +
	`a{color:#c9a7ff}.header{display:flex;justify-content:space-between;align-items:center;padding:1rem 2rem;background:#2b1f47}` +
	`.header nav a,.header nav .user{margin-left:1rem}.header nav a.active{font-weight:bold}.inline{display:inline}` +
	`.content{max-width:72rem;margin:0 auto;padding:1.5rem}.footer{text-align:center;padding:2rem;opacity:.6}` +
	`.deals{display:flex;flex-wrap:wrap;gap:1.5rem;list-style:none;padding:0;justify-content:center}` +
	`.card{width:18rem;background:rgba(255,255,255,.08);border-radius:1rem;overflow:hidden}` +
	`.card img{width:100%;height:8rem;object-fit:cover}.card .body{padding:1rem;text-align:center}` +
	`.bar{height:.4rem}.bg-teal{background:#14b8a6}.bg-yellow{background:#eab308}.bg-red{background:#ef4444}` +
	`.price{font-size:2rem;font-weight:900;background:#ffd504;color:#000;border-radius:.5rem;padding:.3rem}` +
	`.strike{text-decoration:line-through;color:#eab308}.filters{display:flex;gap:1rem;justify-content:center;flex-wrap:wrap}` +
	`.pager{display:flex;gap:1rem;justify-content:center;padding:1rem}.error{text-align:center}.muted{opacity:.6}` +
	`.form{max-width:22rem;margin:2rem auto;display:flex;flex-direction:column;gap:.5rem}.alert{color:#fca5a5}`

// Page wraps content in the site shell: head, header navigation and
// footer. The header reads the signed-in state from ctx.
func Page(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := NewWriter(out)
		w.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.Rawf(`<title>%s | Deal Finder</title>`, templ.EscapeString(title))
		w.Raw(`<style>` + stylesheet + `</style>`)
		w.Raw(`</head><body>`)
		w.Component(ctx, header())
		w.Raw(`<main class="content">`)
		w.Component(ctx, content)
		w.Raw(`</main><footer class="footer">Deal Finder</footer></body></html>`)
		return w.Err()
	})
}

// header renders the navigation bar.
func header() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := NewWriter(out)
		w.Raw(`<header class="header"><a class="brand" href="/">Deal Finder</a><nav>`)
		w.Component(ctx, navLink(ctx, "/", "Deals"))
		if IsAuthenticated(ctx) {
			w.Rawf(`<span class="user">%s</span>`, templ.EscapeString(GetUserName(ctx)))
			w.Raw(`<form method="post" action="/logout" class="inline">`)
			w.CSRF(ctx)
			w.Raw(`<button type="submit">Sign out</button></form>`)
		} else {
			w.Component(ctx, navLink(ctx, "/login", "Sign in"))
			label := "Register"
			if IsFirstRegistration(ctx) {
				label = "Create admin account"
			}
			w.Component(ctx, navLink(ctx, "/register", label))
		}
		w.Raw(`</nav></header>`)
		return w.Err()
	})
}

func navLink(ctx context.Context, href, label string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := NewWriter(out)
		w.Raw(`<a`)
		w.Attr("href", href)
		if GetActivePath(ctx) == href {
			w.Raw(` class="active"`)
		}
		w.Rawf(`>%s</a>`, templ.EscapeString(label))
		return w.Err()
	})
}

// ErrorPage renders a user-safe error message.
func ErrorPage(code int, message string) templ.Component {
	return Page("Error", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := NewWriter(out)
		w.Rawf(`<section class="error"><h1>%d</h1><p>%s</p>`, code, templ.EscapeString(message))
		if id := GetRequestID(ctx); id != "" {
			w.Rawf(`<p class="muted">Request ID: %s</p>`, templ.EscapeString(id))
		}
		w.Raw(`<a href="/">Back to deals</a></section>`)
		return w.Err()
	}))
}
