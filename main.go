// The main package for the novelcrawler executable.
package main

import (
	"github.com/JakeFAU/novel-crawler/cmd"
)

func main() {
	cmd.Execute()
}
