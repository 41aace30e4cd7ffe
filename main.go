package main

import "github.com/vietddude/walletview/internal/cli"

func main() {
	cli.Execute()
}
