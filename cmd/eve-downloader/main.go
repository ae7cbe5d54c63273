package main

import "github.com/eve-utils/eveclient-downloader/cmd/eve-downloader/cmd"

func main() {
	cmd.Execute()
}
