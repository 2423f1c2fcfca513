package utils

import (
	"os"
)

// GetFileSizeByName 文件不存在或无法读取时返回 0
func GetFileSizeByName(filename string) int64 {
	fileStat, err := os.Stat(filename)
	if err != nil {
		return 0
	}

	return fileStat.Size()
}
