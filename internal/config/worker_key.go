package config

type WorkerKeyStruct struct {
	PersistResultStatsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistResultStatsQueue: "persist_result_stats_queue",
}
