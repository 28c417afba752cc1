// Package shellprompt generates the shell integration snippets behind
// `sx shell-init <shell>`: a SANDBOX_MODE-aware prompt segment plus a few
// convenience aliases, embedded the same way sx's built-in profiles are
// (go:embed, mirroring profiles.go at the root package).
package shellprompt

import (
	"embed"
	"fmt"
)

//go:embed snippets/*
var snippetsFS embed.FS

var snippetPaths = map[string]string{
	"zsh":  "snippets/sx.zsh",
	"bash": "snippets/sx.bash",
}

// Snippet returns the shell-init script for shell ("zsh" or "bash").
func Snippet(shell string) (string, error) {
	path, ok := snippetPaths[shell]
	if !ok {
		return "", fmt.Errorf("shellprompt: unsupported shell %q (want zsh or bash)", shell)
	}
	data, err := snippetsFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
