package main

import (
	"github.com/collector-manager/cmd/app"
)

func main() {
	app.Execute()
}
