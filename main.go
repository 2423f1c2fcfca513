package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/dawnzzz/lww-set/config"
	"github.com/dawnzzz/lww-set/database"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/redis/server"
	"github.com/dawnzzz/lww-set/tcp"
)

// 配置文件
var configFilename string
var defaultConfigFileName = "config.yaml"

const banner = `
 _                        _ 
| |_      ____      ____| |
| \ \ /\ / /\ \ /\ / / _' |
| |\ V  V /  \ V  V / (_| |
|_| \_/\_/    \_/\_/ \__,_|

lww-set score server, speaks the redis sorted-set protocol

`

func main() {
	flag.StringVarP(&configFilename, "config", "f", defaultConfigFileName, "the config file")
	flag.Parse()

	fmt.Print(banner)

	// 加载配置文件
	config.SetupConfig(configFilename)

	// 加载日志
	logger.SetupLogger()
	if config.Properties.Debug {
		_ = logger.SetLevel("debug")
	}

	db := database.MakeDB()
	if config.Properties.AppendOnly {
		// 开启 AOF，重放之前的命令
		if err := db.OpenAof(config.Properties.AofFilename, config.Properties.AofFsync); err != nil {
			logger.Fatalf("open aof err, %v", err)
		}
	}

	address := fmt.Sprintf("%v:%v", config.Properties.Bind, config.Properties.Port)
	if err := tcp.ListenAndServeWithSignal(address, server.MakeHandler(db, config.Properties.Keepalive)); err != nil {
		logger.Error(err)
	}
}
