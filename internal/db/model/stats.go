package model

const ManagerStatsCollection = "manager_stats"

// ManagerStatsDocument is keyed by the manager identity.
type ManagerStatsDocument struct {
	ID                  string `bson:"_id"`
	LifetimeUnits       int64  `bson:"lifetime_units"`
	BurnedUnits         int64  `bson:"burned_units"`
	LifetimeProfit      string `bson:"lifetime_profit"`
	ContractCount       int64  `bson:"contract_count"`
	BurnedContractCount int64  `bson:"burned_contract_count"`
	LastUpdated         int64  `bson:"last_updated"`
}
