package root

import (
	"github.com/toke-hq/toke-backend/apps/cli/cmd/schemacmd"
	"github.com/toke-hq/toke-backend/apps/cli/cmd/signcmd"
	"github.com/toke-hq/toke-backend/apps/cli/cmd/tenantcmd"
)

func init() {
	Root().AddCommand(signcmd.Command())
	Root().AddCommand(tenantcmd.Command())
	Root().AddCommand(schemacmd.Command())
}
