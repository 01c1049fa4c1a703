package otel

import "go.opentelemetry.io/otel/metric"

// Metrics holds all engine metrics instruments.
type Metrics struct {
	StoreWriteDuration   metric.Float64Histogram
	StoreQueryDuration   metric.Float64Histogram
	GatewayCallDuration  metric.Float64Histogram
	GatewayTokensUsed    metric.Int64Counter
	EscalationLevelUsed  metric.Int64Counter
	CompactionRuns       metric.Int64Counter
	CompactionBlockSize  metric.Int64Histogram
	SummariesCreated     metric.Int64Counter
	IngestMessagesTotal  metric.Int64Counter
	RetrievalHits        metric.Int64Counter
	ParallelMapItems     metric.Int64Counter
	ParallelMapFailures  metric.Int64Counter
	ExplorerFilesScanned metric.Int64Counter
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.StoreWriteDuration, err = meter.Float64Histogram("lcm.store.write.duration",
		metric.WithDescription("Store write operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.StoreQueryDuration, err = meter.Float64Histogram("lcm.store.query.duration",
		metric.WithDescription("Store query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.GatewayCallDuration, err = meter.Float64Histogram("lcm.gateway.call.duration",
		metric.WithDescription("LLM gateway call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.GatewayTokensUsed, err = meter.Int64Counter("lcm.gateway.tokens",
		metric.WithDescription("Total tokens consumed by gateway calls"),
	)
	if err != nil {
		return nil, err
	}

	m.EscalationLevelUsed, err = meter.Int64Counter("lcm.escalation.level_used",
		metric.WithDescription("Count of escalation attempts by level"),
	)
	if err != nil {
		return nil, err
	}

	m.CompactionRuns, err = meter.Int64Counter("lcm.compaction.runs",
		metric.WithDescription("Number of compaction passes triggered"),
	)
	if err != nil {
		return nil, err
	}

	m.CompactionBlockSize, err = meter.Int64Histogram("lcm.compaction.block_size",
		metric.WithDescription("Number of messages per compacted block"),
	)
	if err != nil {
		return nil, err
	}

	m.SummariesCreated, err = meter.Int64Counter("lcm.summaries.created",
		metric.WithDescription("Total summaries created, leaf and condensed"),
	)
	if err != nil {
		return nil, err
	}

	m.IngestMessagesTotal, err = meter.Int64Counter("lcm.ingest.messages",
		metric.WithDescription("Total messages ingested from transcripts"),
	)
	if err != nil {
		return nil, err
	}

	m.RetrievalHits, err = meter.Int64Counter("lcm.retrieval.hits",
		metric.WithDescription("Total retrieval operation hits returned"),
	)
	if err != nil {
		return nil, err
	}

	m.ParallelMapItems, err = meter.Int64Counter("lcm.parallelmap.items",
		metric.WithDescription("Total items processed by the parallel map executor"),
	)
	if err != nil {
		return nil, err
	}

	m.ParallelMapFailures, err = meter.Int64Counter("lcm.parallelmap.failures",
		metric.WithDescription("Total items that failed after exhausting retries"),
	)
	if err != nil {
		return nil, err
	}

	m.ExplorerFilesScanned, err = meter.Int64Counter("lcm.explorer.files_scanned",
		metric.WithDescription("Total files analyzed by the filetype-aware explorer"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
