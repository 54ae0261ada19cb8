package views

import (
	"net/http"
)

var (
	homeTemplate     = parsePage("home")
	loginTemplate    = parsePage("login")
	registerTemplate = parsePage("register")
)

// Home is the public landing page
type Home struct {
	base string
}

// NewHome creates the landing page
func NewHome(base string) *Home {
	return &Home{base: basePath(base)}
}

// Render implements View
func (v *Home) Render(w http.ResponseWriter, r *http.Request) error {
	return render(w, homeTemplate, http.StatusOK, page{Title: "Home", Base: v.base})
}

type authLink struct {
	AuthURL string
}

// Login points the user at the hosted sign-in
type Login struct {
	base    string
	authURL string
}

// NewLogin creates the login page linking to authURL
func NewLogin(base, authURL string) *Login {
	return &Login{base: basePath(base), authURL: authURL}
}

// Render implements View
func (v *Login) Render(w http.ResponseWriter, r *http.Request) error {
	return render(w, loginTemplate, http.StatusOK, page{
		Title: "Login",
		Base:  v.base,
		Data:  authLink{AuthURL: v.authURL},
	})
}

// Register points the user at the hosted sign-up
type Register struct {
	base    string
	authURL string
}

// NewRegister creates the registration page linking to authURL
func NewRegister(base, authURL string) *Register {
	return &Register{base: basePath(base), authURL: authURL}
}

// Render implements View
func (v *Register) Render(w http.ResponseWriter, r *http.Request) error {
	return render(w, registerTemplate, http.StatusOK, page{
		Title: "Register",
		Base:  v.base,
		Data:  authLink{AuthURL: v.authURL},
	})
}
