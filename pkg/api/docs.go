// Package api provides the HTTP query API of ColorScanner
// @title ColorScanner API
// @version 1.0
// @description Colored coin queries over the transactions indexed by ColorScanner
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/ColorScanner
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:4445
// @basePath /api
// @schemes http https
package api

//go:generate swag init -g docs.go -o docs --parseDependency=false
