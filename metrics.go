package main

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// InfluxConfig is the configuration for Influx/VictoriaMetrics.
type InfluxConfig struct {
	Host        string `yaml:"host"`
	AuthToken   string `yaml:"auth_token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// WindowSink receives every annotation window computed for a recording.
type WindowSink interface {
	WriteWindow(rec *Recording, row Row, w Window)
	Close()
}

type pointWriter interface {
	WritePoint(point *write.Point)
}

// InfluxWriter exports annotation windows as event markers and window
// statistics.
type InfluxWriter struct {
	client      influxdb2.Client
	api         pointWriter
	measurement string
}

func NewInfluxWriter(config InfluxConfig) *InfluxWriter {
	client := influxdb2.NewClient(config.Host, config.AuthToken)
	writeAPI := client.WriteAPI(config.Org, config.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			slog.Warn("Influx write failed", "error", err)
		}
	}()
	return &InfluxWriter{
		client:      client,
		api:         writeAPI,
		measurement: config.Measurement,
	}
}

func (i *InfluxWriter) Close() {
	if i.client != nil {
		i.client.Close()
	}
}

// WriteWindow writes a 0/1/0 marker around the annotation and one point of
// window statistics at its onset.
func (i *InfluxWriter) WriteWindow(rec *Recording, row Row, w Window) {
	onset := rec.Start.Add(seconds(w.Annotation.Onset))
	end := onset.Add(seconds(w.Annotation.Duration))
	subject := filepath.Base(filepath.Dir(rec.Path))

	marker := func(value int, at time.Time) *write.Point {
		return influxdb2.NewPointWithMeasurement(i.measurement).
			AddTag("subject", subject).
			AddTag("task", row.Task).
			AddTag("event", w.Annotation.Label).
			AddField("annotation", value).
			SetTime(at)
	}
	i.api.WritePoint(marker(0, onset.Add(-time.Second)))
	i.api.WritePoint(marker(1, onset))
	i.api.WritePoint(marker(0, end))

	i.api.WritePoint(influxdb2.NewPointWithMeasurement(i.measurement).
		AddTag("subject", subject).
		AddTag("task", row.Task).
		AddTag("event", w.Annotation.Label).
		AddField("run", row.Run).
		AddField("channels", len(w.Data)).
		AddField("samples", w.Samples()).
		AddField("nan_channels", w.NaNChannels).
		SetTime(onset))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
