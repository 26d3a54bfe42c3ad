package alarm

import "errors"

var errAssetUnavailable = errors.New("audio asset unavailable")
