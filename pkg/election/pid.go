package election

import "os"

func pid() int {
	return os.Getpid()
}
