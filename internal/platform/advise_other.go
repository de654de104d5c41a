//go:build !linux

package platform

import "os"

func PrefaultWrite([]byte) {}

func AdviseSequential(*os.File) {}
