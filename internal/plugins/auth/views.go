package auth

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/dealfinder/internal/templates/layouts"
)

// LoginPage renders the sign-in form. username refills the field after a
// failed attempt; errMsg is shown above the form when non-empty.
func LoginPage(username, errMsg string) templ.Component {
	return layouts.Page("Sign in", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := layouts.NewWriter(out)
		w.Raw(`<form method="post" action="/login" class="form"><h1>Sign in</h1>`)
		w.CSRF(ctx)
		alert(w, errMsg)
		w.Raw(`<label for="username">Username</label><input id="username" name="username" autocomplete="username" required`)
		w.Attr("value", username)
		w.Raw(`>`)
		w.Raw(`<label for="password">Password</label><input id="password" name="password" type="password" autocomplete="current-password" required>`)
		w.Raw(`<button type="submit">Sign in</button>`)
		w.Raw(`<p class="muted">No account? <a href="/register">Register</a></p></form>`)
		return w.Err()
	}))
}

// RegisterPage renders the registration form. When isFirst is set the page
// tells the user this account becomes the administrator.
func RegisterPage(req *RegisterRequest, isFirst bool, errMsg string) templ.Component {
	var username string
	if req != nil {
		username = req.Username
	}
	return layouts.Page("Register", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := layouts.NewWriter(out)
		w.Raw(`<form method="post" action="/register" class="form"><h1>Register</h1>`)
		w.CSRF(ctx)
		if isFirst {
			w.Raw(`<p class="muted">No account exists yet. This one will be the administrator.</p>`)
		}
		alert(w, errMsg)
		w.Raw(`<label for="username">Username</label><input id="username" name="username" autocomplete="username" required`)
		w.Attr("value", username)
		w.Raw(`>`)
		w.Raw(`<label for="password">Password</label><input id="password" name="password" type="password" autocomplete="new-password" required>`)
		w.Raw(`<label for="passwordCheck">Password confirm</label><input id="passwordCheck" name="passwordCheck" type="password" autocomplete="new-password" required>`)
		w.Raw(`<button type="submit">Create account</button>`)
		w.Raw(`<p class="muted">Already registered? <a href="/login">Sign in</a></p></form>`)
		return w.Err()
	}))
}

func alert(w *layouts.Writer, msg string) {
	if msg == "" {
		return
	}
	w.Rawf(`<p class="alert" role="alert">%s</p>`, templ.EscapeString(msg))
}
