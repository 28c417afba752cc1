//go:build darwin

package sx

import (
	"github.com/sxtool/sx/platform"
	"github.com/sxtool/sx/platform/darwin"
)

func init() {
	detectPlatformFn = func() platform.Platform {
		return darwin.New()
	}
}
