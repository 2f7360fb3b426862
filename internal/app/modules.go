package app

import (
	"io"
	"net/http"

	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/specialistvlad/flowgridgo/modules/delay"
	"github.com/specialistvlad/flowgridgo/modules/env_vars"
	"github.com/specialistvlad/flowgridgo/modules/evaluate"
	"github.com/specialistvlad/flowgridgo/modules/http_request"
	"github.com/specialistvlad/flowgridgo/modules/print"
	"github.com/specialistvlad/flowgridgo/modules/s3"
	"github.com/specialistvlad/flowgridgo/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the flowgridgo binary. The http client is shared by every node that makes
// outbound requests.
func coreModules(outW io.Writer, client *http.Client) []registry.Module {
	return []registry.Module{
		&delay.Module{},
		&http_request.Module{Client: client},
		&evaluate.Module{},
		&env_vars.Module{},
		&print.Module{Out: outW},
		&s3.Module{Client: client},
		&socketio.Module{},
	}
}
