package main

import (
	"crypto/rand"
	"fmt"
)

// adjectives and nouns are kept short enough that the longest possible
// "adj-nounNNNN" combination still fits proto.MaxNameLength.
var adjectives = []string{
	"calm", "eager", "fuzzy", "happy", "jolly", "kind", "merry", "proud",
	"silly", "witty",
}

var nouns = []string{
	"otter", "heron", "lynx", "panda", "raven", "tapir", "viper",
}

// randomUsername produces a default username of the form adjective-nounNNNN
// when the user supplies none.
func randomUsername() string {
	adj := adjectives[randIndex(len(adjectives))]
	noun := nouns[randIndex(len(nouns))]
	return fmt.Sprintf("%s-%s%04d", adj, noun, randIndex(10000))
}

func randIndex(n int) int {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return int(v % uint32(n))
}
