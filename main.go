package main

import (
	"context"

	_ "github.com/opsportal/portal/src/admintools"
	_ "github.com/opsportal/portal/src/locals3"
	_ "github.com/opsportal/portal/src/migration"
	"github.com/opsportal/portal/src/website"
)

func main() {
	website.WebsiteCommand.ExecuteContext(context.Background())
}
