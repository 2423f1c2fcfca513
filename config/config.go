package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/dawnzzz/lww-set/logger"
)

// ServerProperties 服务器与 lww-set 客户端的配置
type ServerProperties struct {
	Debug     bool   `mapstructure:"debug"`     // 是否是debug
	Bind      string `mapstructure:"bind"`      // 服务器绑定地址
	Port      int    `mapstructure:"port"`      // 监听端口
	Keepalive int    `mapstructure:"keepalive"` // 心跳超时时间，单位秒，0 表示不检查

	/* AOF 配置 */
	AppendOnly  bool   `mapstructure:"append_only"`  // 是否开启 AOF
	AofFilename string `mapstructure:"aof_filename"` // AOF 文件名
	AofFsync    int    `mapstructure:"aof_fsync"`    // 0: always, 1: every sec, 2: no

	/* lww-set 配置 */
	AddSetKey     string `mapstructure:"add_set_key"`     // 远程存储中 add 记录的 key
	RemoveSetKey  string `mapstructure:"remove_set_key"`  // 远程存储中 remove 记录的 key
	GetWorkers    int    `mapstructure:"get_workers"`     // Get 时并发检查成员的协程数
	NodeID        int64  `mapstructure:"node_id"`         // 生成时间戳的 snowflake 节点号
	MaxIdleConn   int    `mapstructure:"max_idle_conn"`   // 连接池最大空闲连接数
	MaxActiveConn int    `mapstructure:"max_active_conn"` // 连接池最大活跃连接数
}

var Properties *ServerProperties

func init() {
	// 默认配置
	Properties = Default()
}

// Default 返回默认配置
func Default() *ServerProperties {
	return &ServerProperties{
		Debug:     os.Getenv("ENV") == "DEBUG",
		Bind:      "127.0.0.1",
		Port:      6179,
		Keepalive: 0,

		AppendOnly:  true,
		AofFilename: "lww.aof",
		AofFsync:    1,

		AddSetKey:     "lww_add_set",
		RemoveSetKey:  "lww_remove_set",
		GetWorkers:    8,
		NodeID:        1,
		MaxIdleConn:   4,
		MaxActiveConn: 16,
	}
}

// SetupConfig 读配置文件，加载配置文件
func SetupConfig(configFilename string) {
	if err := Load(configFilename, Properties); err != nil {
		logger.Fatalf("setup config err, %v", err)
	}
}

// Load 将配置文件读入 props，文件不存在时保持 props 不变
func Load(configFilename string, props *ServerProperties) error {
	if !fileExists(configFilename) {
		// 文件不存在，直接用默认配置
		return nil
	}

	v := viper.New()
	v.SetConfigFile(configFilename)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("lww")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(props)
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}
