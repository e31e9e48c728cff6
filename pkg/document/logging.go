package document

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("fxengine/document", "formula document")
