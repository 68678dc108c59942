// Synthetic game-session producer. Publishes score submissions for
// existing players to the portal's Kafka topic, for load testing the
// ingestion path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// ScoreSubmission mirrors the portal's score submission message format
type ScoreSubmission struct {
	EventID    string `json:"event_id,omitempty"`
	PlayerID   string `json:"player_id"`
	GameID     string `json:"game_id"`
	Score      int64  `json:"score"`
	TimePlayed int64  `json:"time_played,omitempty"`
}

var games = []string{
	"tictactoe", "quick-math", "color-match", "number-guessing",
	"pattern-memory", "reaction-time", "rock-paper-scissors",
	"simon-says", "typing-speed", "word-scramble",
}

// maxScore holds a rough per-game score ceiling so the synthetic load
// resembles what the mini-games actually emit.
var maxScore = map[string]int64{
	"tictactoe":           10,
	"quick-math":          200,
	"color-match":         150,
	"number-guessing":     100,
	"pattern-memory":      300,
	"reaction-time":       100,
	"rock-paper-scissors": 15,
	"simon-says":          250,
	"typing-speed":        120,
	"word-scramble":       180,
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "portal-scores", "Kafka topic")
	players := flag.String("players", "", "Existing player IDs to submit for (comma-separated)")
	rate := flag.Int("rate", 10, "Submissions per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	playerIDs := strings.Split(*players, ",")
	if len(playerIDs) == 0 || playerIDs[0] == "" {
		log.Fatal("at least one player ID is required (-players)")
	}

	fmt.Printf("Score producer: brokers=%s topic=%s players=%d rate=%d/s\n",
		*brokers, *topic, len(playerIDs), *rate)

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(strings.Split(*brokers, ","), config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sendSession := func() {
		gameID := games[rand.Intn(len(games))]
		submission := ScoreSubmission{
			EventID:    uuid.New().String(),
			PlayerID:   playerIDs[rand.Intn(len(playerIDs))],
			GameID:     gameID,
			Score:      rand.Int63n(maxScore[gameID] + 1),
			TimePlayed: int64(rand.Intn(300)),
		}

		data, err := json.Marshal(submission)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		producer.Input() <- &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(submission.PlayerID),
			Value: sarama.ByteEncoder(data),
		}
	}

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	start := time.Now()
loop:
	for {
		select {
		case <-ticker.C:
			sendSession()
		case <-deadline:
			break loop
		case <-sigChan:
			break loop
		}
	}

	producer.AsyncClose()
	wg.Wait()

	fmt.Printf("Done in %s: %d sent, %d errors\n",
		time.Since(start).Round(time.Second),
		atomic.LoadInt64(&successCount),
		atomic.LoadInt64(&errorCount))
}
