package pvm

import "slices"

// A versioned set of host functions a program may import.
//
// A function's import index is its position in Functions, so entries are
// only ever appended.
type HostTable struct {
	Module    string   // Namespace the functions are imported from.
	Version   uint32   // Table revision, part of every conversion cache key.
	Functions []string // Function names in index order.
}

// Returns the import index of the named function.
func (t HostTable) Lookup(name string) (uint32, bool) {
	i := slices.Index(t.Functions, name)
	if i < 0 {
		return 0, false
	}
	return uint32(i), true
}

// Host functions exposed to contracts by the revive pallet.
var HostFunctionsV1 = HostTable{
	Module:  "seal0",
	Version: 1,
	Functions: []string{
		"set_storage",
		"set_storage_or_clear",
		"get_storage",
		"get_storage_or_zero",
		"clear_storage",
		"contains_storage",
		"take_storage",
		"call",
		"delegate_call",
		"instantiate",
		"terminate",
		"call_data_size",
		"call_data_copy",
		"call_data_load",
		"return_value",
		"return_data_size",
		"return_data_copy",
		"caller",
		"origin",
		"address",
		"code_hash",
		"code_size",
		"own_code_hash",
		"balance",
		"balance_of",
		"value_transferred",
		"minimum_balance",
		"now",
		"block_number",
		"block_hash",
		"block_author",
		"chain_id",
		"gas_limit",
		"gas_price",
		"base_fee",
		"ref_time_left",
		"weight_left",
		"weight_to_fee",
		"deposit_event",
		"hash_keccak_256",
		"hash_blake2_256",
		"hash_blake2_128",
		"ecdsa_recover",
		"ecdsa_to_eth_address",
		"sr25519_verify",
		"get_immutable_data",
		"set_immutable_data",
		"consume_all_gas",
		"caller_is_origin",
		"caller_is_root",
	},
}
