package pathutil

import (
	"os"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

// Classify decides how a target path receives records. An existing path is
// classified by its type on disk. A missing path is a directory target when
// it ends with a separator and a single file otherwise.
func Classify(path string) beancount.Mode {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return beancount.ModeDirectory
		}
		return beancount.ModeSingleFile
	}
	if HasTrailingSeparator(path) {
		return beancount.ModeDirectory
	}
	return beancount.ModeSingleFile
}
