package relay

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateRoomID creates a random, memorable room id from four different word
// lists, e.g. "kitten-waffle-stardust-happy".
func GenerateRoomID() (string, error) {
	lists := [][]string{animals, dishes, names, randomWords, adjectives, extras}

	words := make([]string, 0, 4)
	for len(words) < 4 {
		i, err := randomIndex(len(lists))
		if err != nil {
			return "", err
		}
		list := lists[i]
		lists = append(lists[:i:i], lists[i+1:]...)

		j, err := randomIndex(len(list))
		if err != nil {
			return "", err
		}
		words = append(words, list[j])
	}
	return fmt.Sprintf("%s-%s-%s-%s", words[0], words[1], words[2], words[3]), nil
}

// randomIndex returns a cryptographically secure random index below n.
func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("generate room id: %w", err)
	}
	return int(v.Int64()), nil
}
