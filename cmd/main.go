// roadwatch ищет выбоины на фото и видео дорог и ведёт журнал отчётов.
//
// Usage:
//
//	roadwatch serve
//	roadwatch detect <file> [--lat=<lat> --lon=<lon>] [--description=<text>] [--dry-run] [--json]
//	roadwatch reports [--near=<lat,lon> --radius=<km>] [--json]
//	roadwatch wallet
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
