package config

type GenesisAllocation struct {
	Account string `json:"account" yaml:"account"`
	Balance uint64 `json:"balance" yaml:"balance"`
}

// GenesisCommunity is registered by root while building the genesis state.
type GenesisCommunity struct {
	Id     uint16 `json:"id" yaml:"id"`
	Admin  string `json:"admin" yaml:"admin"`
	Active bool   `json:"active" yaml:"active"`
}

type GenesisConf struct {
	Alloc       []GenesisAllocation `json:"alloc" yaml:"alloc"`
	Communities []GenesisCommunity  `json:"communities" yaml:"communities"`
}
