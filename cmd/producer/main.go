package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/message"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

const (
	kafkaBroker = "localhost:9092"
	topic       = "tensor-samples"
)

func main() {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(kafkaBroker),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Fatalf("Error closing kafka writer: %v", err)
		}
	}()
	log.Printf("Starting sample producer for topic: %s on broker: %s", topic, kafkaBroker)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		log.Println("Shutdown signal received, stopping producer...")
		cancel()
	}()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	seq := 0

	for {
		select {
		case <-ticker.C:
			sample, err := generateSample(rng, seq)
			if err != nil {
				log.Printf("Error generating sample: %v", err)
				continue
			}
			seq++

			msgBytes, err := message.EncodeSample(sample)
			if err != nil {
				log.Printf("Error encoding sample: %v", err)
				continue
			}

			err = writer.WriteMessages(ctx, kafka.Message{Value: msgBytes})
			if err != nil {
				if ctx.Err() != nil {
					log.Println("Context cancelled, exiting message loop.")
					return
				}
				log.Printf("Error writing sample: %v", err)
			} else {
				log.Printf("Produced sample %s (%d bytes)", sample.ID, len(msgBytes))
			}

		case <-ctx.Done():
			log.Println("Producer loop stopped.")
			return
		}
	}
}

// generateSample builds a sample with an "input" image-like tensor and an
// "output" activation tensor, with some randomness in the values.
func generateSample(rng *rand.Rand, seq int) (*measure.Sample, error) {
	const h, w, c = 8, 8, 3

	input := make([]float64, h*w*c)
	for i := range input {
		// Normal distribution around 10, stddev 2, with occasional outliers
		v := 10.0 + rng.NormFloat64()*2.0
		if rng.Float64() < 0.02 {
			v += rng.Float64() * 30.0
		}
		input[i] = v
	}
	inputTensor, err := tensor.New([]tensor.Axis{"y", "x", "channel"}, []int{h, w, c}, input)
	if err != nil {
		return nil, err
	}

	output := make([]float64, h*w)
	for i := range output {
		output[i] = rng.Float64() // Uniform in [0,1)
	}
	outputTensor, err := tensor.New([]tensor.Axis{"y", "x"}, []int{h, w}, output)
	if err != nil {
		return nil, err
	}

	return &measure.Sample{
		ID: fmt.Sprintf("sample_%d", seq),
		Data: map[string]*tensor.Tensor{
			"input":  inputTensor,
			"output": outputTensor,
		},
	}, nil
}
