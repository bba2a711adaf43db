// Package main is the entry point for saasgate.
//
//	@title			saasgate API
//	@version		1.0
//	@description	Per-user and per-organization settings, auth callback routing and extension points for a SaaS front end.
//
//	@contact.name	saasgate maintainers
//	@contact.url	https://github.com/artpar/saasgate/issues
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
package main

func main() {
	Execute()
}
