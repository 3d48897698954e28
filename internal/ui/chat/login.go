// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/dixel/internal/ui/styles"
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

// loginForm is the sign-in / sign-up form shown while signed out.
type loginForm struct {
	signup bool
	fields [3]textinput.Model
	focus  int
	err    string
	busy   bool
}

func newLoginForm() *loginForm {
	f := &loginForm{}

	name := textinput.New()
	name.Placeholder = "Votre nom"
	name.CharLimit = 100

	email := textinput.New()
	email.Placeholder = "votre@email.com"
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "Mot de passe"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	f.fields = [3]textinput.Model{name, email, password}
	f.setFocus(fieldEmail)
	return f
}

// visible lists the fields of the current mode in tab order.
func (f *loginForm) visible() []int {
	if f.signup {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *loginForm) setFocus(i int) {
	f.focus = i
	for j := range f.fields {
		if j == i {
			f.fields[j].Focus()
		} else {
			f.fields[j].Blur()
		}
	}
}

func (f *loginForm) move(delta int) {
	order := f.visible()
	pos := 0
	for i, idx := range order {
		if idx == f.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(order)) % len(order)
	f.setFocus(order[pos])
}

func (f *loginForm) toggleMode() {
	f.signup = !f.signup
	f.err = ""
	f.setFocus(f.visible()[0])
}

// Values returns the trimmed name and email and the raw password.
func (f *loginForm) Values() (name, email, password string) {
	return strings.TrimSpace(f.fields[fieldName].Value()),
		strings.TrimSpace(f.fields[fieldEmail].Value()),
		f.fields[fieldPassword].Value()
}

// Update handles a key. submit is true when the form should be sent.
func (f *loginForm) Update(msg tea.KeyMsg) (submit bool, cmd tea.Cmd) {
	if f.busy {
		return false, nil
	}
	switch msg.String() {
	case "tab", "down":
		f.move(1)
		return false, nil
	case "shift+tab", "up":
		f.move(-1)
		return false, nil
	case "ctrl+s":
		f.toggleMode()
		return false, nil
	case "enter":
		order := f.visible()
		if f.focus != order[len(order)-1] {
			f.move(1)
			return false, nil
		}
		f.err = ""
		return true, nil
	}
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return false, cmd
}

// View renders the form centered in width x height.
func (f *loginForm) View(theme *styles.Theme, width, height int) string {
	var b strings.Builder
	title := "Connexion"
	toggle := "Pas de compte ? C-s pour s'inscrire"
	if f.signup {
		title = "Inscription"
		toggle = "Déjà inscrit ? C-s pour se connecter"
	}
	b.WriteString(theme.HeaderTitle.Render(title))
	b.WriteString("\n\n")

	labels := map[int]string{fieldName: "Nom", fieldEmail: "Email", fieldPassword: "Mot de passe"}
	for _, idx := range f.visible() {
		b.WriteString(theme.FieldLabel.Render(labels[idx]))
		b.WriteString(f.fields[idx].View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case f.busy:
		b.WriteString(theme.Hint.Render("Connexion en cours…"))
	case f.err != "":
		b.WriteString(theme.StatusErr.Render(f.err))
	default:
		b.WriteString(theme.Hint.Render("Entrée pour valider · Tab pour changer de champ"))
	}
	b.WriteString("\n")
	b.WriteString(theme.Hint.Render(toggle))

	box := theme.Overlay.Width(min(60, max(width-4, 20))).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
