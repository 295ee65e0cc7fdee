package bundle

import "github.com/tliron/commonlog"

var log = commonlog.GetLogger("avmrt.bundle")
