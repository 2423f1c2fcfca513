package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sanity-io/litter"
	flag "github.com/spf13/pflag"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"github.com/dawnzzz/lww-set/config"
	"github.com/dawnzzz/lww-set/interface/crdt"
	"github.com/dawnzzz/lww-set/logger"
	"github.com/dawnzzz/lww-set/lww"
	"github.com/dawnzzz/lww-set/lww/remote"
	"github.com/dawnzzz/lww-set/redis/store"
)

var (
	configFilename string
	host           string
	port           int
	elementType    string
	logLevel       string
)

const usage = `usage: lwwcli [flags] <command> [args]

commands:
  add <element> [timestamp]      record that element was added
  remove <element> [timestamp]   record that element was removed
  exist <element>                print whether element is in the set
  get                            print all elements in the set

timestamps default to the local snowflake clock.

flags:
`

func main() {
	flag.StringVarP(&configFilename, "config", "f", "config.yaml", "the config file")
	flag.StringVarP(&host, "host", "h", "", "the host of the score server, overrides config")
	flag.IntVarP(&port, "port", "p", 0, "the port of the score server, overrides config")
	flag.StringVarP(&elementType, "type", "t", "string", "element type: string or int")
	flag.StringVar(&logLevel, "log-level", "warn", "log level")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.SetLevel(logLevel); err != nil {
		logger.Fatalf("bad log level, %v", err)
	}
	config.SetupConfig(configFilename)
	if host != "" {
		config.Properties.Bind = host
	}
	if port != 0 {
		config.Properties.Port = port
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "(error) %v\n", err)
		if lww.IsRetryable(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	props := config.Properties
	s, err := store.Dial(store.Config{
		Addr:          fmt.Sprintf("%v:%v", props.Bind, props.Port),
		Keepalive:     props.Keepalive,
		MaxIdleConn:   props.MaxIdleConn,
		MaxActiveConn: props.MaxActiveConn,
	})
	if err != nil {
		return lww.Internal(err, "connect score server")
	}
	defer s.Close()

	clock, err := lww.NewClock(props.NodeID)
	if err != nil {
		return err
	}
	workers := props.GetWorkers
	if props.MaxActiveConn > 0 && workers > props.MaxActiveConn {
		// 多出来的协程只会等待连接
		workers = props.MaxActiveConn
	}
	cfg := &remote.Config{
		AddSetKey:    props.AddSetKey,
		RemoveSetKey: props.RemoveSetKey,
		GetWorkers:   workers,
	}

	switch elementType {
	case "string":
		set := remote.MakeSet[string](s, lww.StringCodec{}, cfg)
		return execute[string](set, lww.StringCodec{}, sorted[string], clock, args)
	case "int":
		set := remote.MakeSet[int](s, lww.IntCodec{}, cfg)
		return execute[int](set, lww.IntCodec{}, sorted[int], clock, args)
	}
	return errors.Newf("unknown element type %q", elementType)
}

// execute 对 set 执行一条命令并打印结果
func execute[T comparable](set crdt.LWWSet[T], codec lww.Codec[T], order func(mapset.Set[T]) []T,
	clock *lww.Clock, args []string) error {
	cmd, args := args[0], args[1:]

	switch cmd {
	case "add", "remove":
		if len(args) != 1 && len(args) != 2 {
			return errors.Newf("%s takes <element> [timestamp]", cmd)
		}
		element, err := codec.Decode(args[0])
		if err != nil {
			return errors.Mark(err, lww.ErrInvalidArgument)
		}
		ts := clock.NowScore()
		if len(args) == 2 {
			raw, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return errors.Mark(errors.Wrapf(err, "parse timestamp %q", args[1]), lww.ErrInvalidArgument)
			}
			ts = crdt.Timestamp(raw)
		}
		if cmd == "add" {
			err = set.Add(element, ts)
		} else {
			err = set.Remove(element, ts)
		}
		if err != nil {
			return err
		}
		fmt.Printf("OK %d\n", ts)
	case "exist":
		if len(args) != 1 {
			return errors.New("exist takes <element>")
		}
		element, err := codec.Decode(args[0])
		if err != nil {
			return errors.Mark(err, lww.ErrInvalidArgument)
		}
		ok, err := set.Exist(element)
		if err != nil {
			return err
		}
		fmt.Println(ok)
	case "get":
		members, err := set.Get()
		if err != nil {
			return err
		}
		ordered := order(members)
		if logger.IsDebug() {
			logger.Debug(litter.Sdump(ordered))
		}
		if len(ordered) == 0 {
			fmt.Println("(empty set)")
		}
		for i, member := range ordered {
			fmt.Printf("%d) %s\n", i+1, codec.Encode(member))
		}
	default:
		return errors.Newf("unknown command %q", cmd)
	}

	return nil
}

func sorted[T constraints.Ordered](members mapset.Set[T]) []T {
	result := members.ToSlice()
	slices.Sort(result)
	return result
}
