// Command admissions はコホート入学管理のAPIサーバー、ワーカー、管理用サブコマンドを提供する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/admissions/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
