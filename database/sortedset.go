package database

import (
	"math"
	"strconv"
	"strings"

	"github.com/dawnzzz/lww-set/datastruct/sortedset"
	"github.com/dawnzzz/lww-set/interface/redis"
	"github.com/dawnzzz/lww-set/lib/utils"
	"github.com/dawnzzz/lww-set/redis/protocol/reply"
)

// ZADD key [GT] score member [score member ...]
func execZAdd(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	args = args[1:]

	gt := false
	if strings.ToUpper(string(args[0])) == "GT" {
		gt = true
		args = args[1:]
	}
	if len(args) == 0 || len(args)%2 != 0 {
		return reply.MakeSyntaxErrReply()
	}

	size := len(args) / 2
	elements := make([]*sortedset.Element, size)
	for i := 0; i < size; i++ {
		scoreValue := args[2*i]
		member := string(args[2*i+1])
		score, err := strconv.ParseFloat(string(scoreValue), 64)
		if err != nil || math.IsNaN(score) {
			return reply.MakeErrReply("ERR value is not a valid float")
		}
		elements[i] = &sortedset.Element{
			Member: member,
			Score:  score,
		}
	}

	sortedSet := db.getOrInitSortedSet(key)

	i := 0
	for _, e := range elements {
		var added bool
		if gt {
			added = sortedSet.AddIfGreater(e.Member, e.Score)
		} else {
			added = sortedSet.Add(e.Member, e.Score)
		}
		if added {
			i++
		}
	}

	return reply.MakeIntReply(int64(i))
}

func execZCard(db *DB, args [][]byte) redis.Reply {
	sortedSet, ok := db.getSortedSet(string(args[0]))
	if !ok {
		return reply.MakeIntReply(0)
	}

	return reply.MakeIntReply(sortedSet.Len())
}

func execZScore(db *DB, args [][]byte) redis.Reply {
	sortedSet, ok := db.getSortedSet(string(args[0]))
	if !ok {
		return reply.MakeNullBulkStringReply()
	}

	element, ok := sortedSet.Get(string(args[1]))
	if !ok {
		return reply.MakeNullBulkStringReply()
	}

	score := utils.FormatScore(element.Score)
	return reply.MakeBulkStringReply([]byte(score))
}

// ZRANGE key start stop [WITHSCORES]
func execZRange(db *DB, args [][]byte) redis.Reply {
	if len(args) != 3 && len(args) != 4 {
		return reply.MakeArgNumErrReply("zrange")
	}
	withScores := false
	if len(args) == 4 {
		if strings.ToUpper(string(args[3])) != "WITHSCORES" {
			return reply.MakeSyntaxErrReply()
		}
		withScores = true
	}
	start, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return reply.MakeErrReply("ERR value is not an integer or out of range")
	}
	stop, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return reply.MakeErrReply("ERR value is not an integer or out of range")
	}

	return range0(db, string(args[0]), start, stop, withScores)
}

func range0(db *DB, key string, start int64, stop int64, withScores bool) redis.Reply {
	sortedSet, ok := db.getSortedSet(key)
	if !ok {
		return reply.MakeEmptyMultiBulkStringReply()
	}

	// compute index
	size := sortedSet.Len()
	if start < -1*size {
		start = 0
	} else if start < 0 {
		start = size + start
	} else if start >= size {
		return reply.MakeEmptyMultiBulkStringReply()
	}
	if stop < -1*size {
		stop = 0
	} else if stop < 0 {
		stop = size + stop + 1
	} else if stop < size {
		stop = stop + 1
	} else {
		stop = size
	}
	if stop < start {
		stop = start
	}

	// assert: start in [0, size - 1], stop in [start, size]
	slice := sortedSet.Range(start, stop, false)
	if len(slice) == 0 {
		return reply.MakeEmptyMultiBulkStringReply()
	}
	result := make([][]byte, 0, len(slice)*2)
	for _, element := range slice {
		result = append(result, []byte(element.Member))
		if withScores {
			result = append(result, []byte(utils.FormatScore(element.Score)))
		}
	}
	return reply.MakeMultiBulkStringReply(result)
}

// DEL key [key ...]
func execDel(db *DB, args [][]byte) redis.Reply {
	deleted := int64(0)
	for _, arg := range args {
		if db.remove(string(arg)) {
			deleted++
		}
	}
	return reply.MakeIntReply(deleted)
}

func init() {
	RegisterCommand("ZAdd", execZAdd, writeFirstKey, -4, FlagWrite)
	RegisterCommand("ZCard", execZCard, readFirstKey, 2, FlagReadOnly)
	RegisterCommand("ZScore", execZScore, readFirstKey, 3, FlagReadOnly)
	RegisterCommand("ZRange", execZRange, readFirstKey, -4, FlagReadOnly)
	RegisterCommand("Del", execDel, writeAllKeys, -2, FlagWrite)
}
