/*
Iitu-bot is a Telegram bot that answers questions about IITU (International
IT University) using a knowledge base built from the university website.

# Usage

	$ iitu-bot [flags...] [command]

Available commands:

	setup	Bootstrap the local environment: check the toolchain version,
		provision the venv tool directory, install the dependencies from
		requirements.txt, create the data and logs directories and seed
		.env from .env.example.
	update	Crawl the university website and news feed, process the pages
		and rebuild the knowledge base.
	status	Report whether the environment and data files are in place.
	run	Start the bot (the default when no command is given).

Configuration is read from the .env file and the process environment; see
.env.example for the available keys.
*/
package main

import (
	_ "embed"

	"github.com/baltabekpro/iitu-bot/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
