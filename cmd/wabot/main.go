package main

import (
	"fmt"
	"log"
	"os"

	"wabot/bot"
	"wabot/core/buildinfo"
	corecmd "wabot/core/cmd"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "version" || os.Args[1] == "--version") {
		fmt.Println(buildinfo.String())
		return
	}

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Build: bot.Build,
	})
	if err != nil {
		log.Fatalf("wabot: %v", err)
	}
}
