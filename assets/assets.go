// Package assets embeds the files shipped with the binaries.
package assets

import "embed"

// EmailTemplatesDir is the directory of the email templates inside FS.
const EmailTemplatesDir = "templates/email"

//go:embed all:templates
var FS embed.FS
