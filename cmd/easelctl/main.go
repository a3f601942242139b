package main

import (
	"github.com/atelierhq/easel/cmd/easelctl/cmd"

	_ "golang.org/x/crypto/x509roots/fallback"
)

func main() {
	cmd.Execute()
}
