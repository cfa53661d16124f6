// pkgbot: recipe bookkeeping API with Slack-approved trust updates.
package main

import "github.com/contenox/pkgbot/internal/pkgbotcli"

func main() {
	pkgbotcli.Main()
}
