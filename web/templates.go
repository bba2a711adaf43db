package web

// Page bodies, kept inline so the binary has no template files to ship.
const pageTemplates = `
{{define "home"}}<main class="home">
    <header>
        <h1>{{.Title}}</h1>
        <nav>
            <a href="{{call .Link "/"}}">Home</a>
            <a href="{{call .Link "/settings"}}">Settings</a>
            <a href="{{call .Link "/settings/schema"}}">Schema</a>
        </nav>
    </header>
    {{if .Values}}
    <table class="settings">
        <thead>
            <tr><th>Setting</th><th>Value</th><th>Storage</th></tr>
        </thead>
        <tbody>
        {{range .Values}}
            <tr{{if .Default}} class="default"{{end}}>
                <td>{{.Name}}</td>
                <td>{{.Value}}</td>
                <td>{{.Storage}}</td>
            </tr>
        {{end}}
        </tbody>
    </table>
    {{else}}
    <p class="empty">No settings are available for this account.</p>
    {{end}}
</main>{{end}}

{{define "not_found"}}<main class="not-found">
    <h1>Page not found</h1>
    <p>Nothing lives at {{.Path}}.</p>
    <a href="{{call .Link "/"}}">Back to the start page</a>
</main>{{end}}
`
