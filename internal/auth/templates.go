package auth

import "html/template"

// Templates は認証画面とトップページの最小限のテンプレートを返します。
// 本格的な画面は対象外のため、フォームとエラー表示だけを持ちます。
func Templates() *template.Template {
	return template.Must(template.New("").Parse(pages))
}

const pages = `
{{define "auth/register.html"}}<!doctype html>
<title>Register</title>
<h1>Register</h1>
{{if .Error}}<p class="flash">{{.Error}}</p>{{end}}
<form method="post">
  <label for="username">Username</label>
  <input name="username" id="username" required>
  <label for="password">Password</label>
  <input type="password" name="password" id="password" required>
  <input type="submit" value="Register">
</form>
{{end}}

{{define "auth/login.html"}}<!doctype html>
<title>Log In</title>
<h1>Log In</h1>
{{if .Error}}<p class="flash">{{.Error}}</p>{{end}}
<form method="post">
  <label for="username">Username</label>
  <input name="username" id="username" required>
  <label for="password">Password</label>
  <input type="password" name="password" id="password" required>
  <input type="submit" value="Log In">
</form>
{{end}}

{{define "index.html"}}<!doctype html>
<title>Home</title>
<nav>
{{if .User}}
  <span>{{.User.Username}}</span>
  <a href="/auth/logout">Log Out</a>
{{else}}
  <a href="/auth/register">Register</a>
  <a href="/auth/login">Log In</a>
{{end}}
</nav>
<h1>Home</h1>
{{end}}
`
