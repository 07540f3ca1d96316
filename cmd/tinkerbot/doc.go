// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Tinkerbot is a Telegram bot for makers.

It lets users browse a small catalog of robotics and IoT projects and Python
libraries, and falls back to GitHub code search to find source files,
schematics, bills of materials and guides when the catalog has nothing to
offer. Found files are sent back inline, as photos or as documents.

Tinkerbot also serves tech headlines from RSS and Atom feeds and random code
snippets, both configured in Starlark.

# Usage

	$ tinkerbot [flags...]

Tinkerbot receives updates via webhook when PUBLIC_URL is set, and polls for
them otherwise or when -poll is passed.

# Environment

Tinkerbot reads the following environment variables. Values from the file
passed with -env-file (.env by default) are used for variables that are not
set in the process environment.

	BOT_TOKEN or TELEGRAM_BOT_TOKEN
		Telegram Bot API token. Required.
	PUBLIC_URL
		Public URL of the bot, used to set the webhook.
	WEBHOOK_PATH
		Path of the webhook endpoint. Defaults to /webhook.
	WEBHOOK_SECRET
		Secret Telegram sends with every webhook request. Defaults to secret123.
	PORT
		Port to listen on. Defaults to 10000.
	DB_PATH
		Path of the project catalog, in JSON or YAML. Defaults to projects.json.
	CONFIG_PATH
		Path of the Starlark configuration with news feeds and snippets.
		The built-in configuration is used if empty.
	GITHUB_TOKEN
		GitHub access token. Anonymous code search is heavily rate limited.
	LOG_LEVEL
		Log level: debug, info, warn or error.

# Configuration

The Starlark configuration defines two lists:

	feeds = [
	    feed(url = "https://www.hackster.io/feeds.xml", title = "Hackster", category = "iot"),
	]

	snippets = [
	    snippet(title = "Blink", tags = ["arduino"], code = "...", desc = "..."),
	]

Feed categories are general, ai and iot.

# Endpoints

	GET /            responds with OK
	POST /webhook    receives Telegram updates
	GET /health      reports health
	GET /debug/logs  returns recent log lines as JSON, or streams them as
	                 server-sent events
*/
package main

import (
	_ "embed"

	"go.astrophena.name/tinkerbot/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
