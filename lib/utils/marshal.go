package utils

import (
	"strconv"
)

// ToCmdLine convert strings to [][]byte
func ToCmdLine(cmd ...string) [][]byte {
	args := make([][]byte, len(cmd))
	for i, s := range cmd {
		args[i] = []byte(s)
	}
	return args
}

// ToCmdLineWithName 在参数前加上命令名
func ToCmdLineWithName(name string, args ...string) [][]byte {
	result := make([][]byte, len(args)+1)
	result[0] = []byte(name)
	for i, s := range args {
		result[i+1] = []byte(s)
	}
	return result
}

// FormatScore 有序集合的 score 转为字符串，整数不带小数点
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
