// Copyright 2020 dfuse Platform Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model holds the row types of the history database (§3 of the
// specification) and their wire encoding, field order matching the original
// eosio::block_info / eosio::action_trace / eosio::account / contract_row
// struct layout verbatim.
package model

import "github.com/dfuse-io/wasmql/wire"

// TransactionStatus mirrors eosio::transaction_status.
type TransactionStatus uint8

const (
	TransactionStatusExecuted TransactionStatus = 0
	TransactionStatusSoftFail TransactionStatus = 1
	TransactionStatusHardFail TransactionStatus = 2
	TransactionStatusDelayed  TransactionStatus = 3
	TransactionStatusExpired  TransactionStatus = 4
)

// BlockInfo is an immutable summary of a finalized block.
type BlockInfo struct {
	BlockNum            uint32
	BlockID             [32]byte
	Timestamp           uint32 // block_timestamp, seconds-since-epoch slot count
	Producer            uint64 // name
	Confirmed           uint16
	Previous            [32]byte
	TransactionMroot    [32]byte
	ActionMroot         [32]byte
	ScheduleVersion     uint32
	NewProducersVersion uint32
}

func (b *BlockInfo) MarshalWire(e *wire.Encoder) {
	e.WriteUint32(b.BlockNum)
	e.WriteDigest(b.BlockID)
	e.WriteUint32(b.Timestamp)
	e.WriteName(b.Producer)
	e.WriteUint16(b.Confirmed)
	e.WriteDigest(b.Previous)
	e.WriteDigest(b.TransactionMroot)
	e.WriteDigest(b.ActionMroot)
	e.WriteUint32(b.ScheduleVersion)
	e.WriteUint32(b.NewProducersVersion)
}

func (b *BlockInfo) UnmarshalWire(d *wire.Decoder) (err error) {
	if b.BlockNum, err = d.ReadUint32(); err != nil {
		return err
	}
	if b.BlockID, err = d.ReadDigest(); err != nil {
		return err
	}
	if b.Timestamp, err = d.ReadUint32(); err != nil {
		return err
	}
	if b.Producer, err = d.ReadName(); err != nil {
		return err
	}
	if b.Confirmed, err = d.ReadUint16(); err != nil {
		return err
	}
	if b.Previous, err = d.ReadDigest(); err != nil {
		return err
	}
	if b.TransactionMroot, err = d.ReadDigest(); err != nil {
		return err
	}
	if b.ActionMroot, err = d.ReadDigest(); err != nil {
		return err
	}
	if b.ScheduleVersion, err = d.ReadUint32(); err != nil {
		return err
	}
	b.NewProducersVersion, err = d.ReadUint32()
	return err
}

// ActionTrace records one action's execution within a transaction.
type ActionTrace struct {
	BlockIndex            uint32
	TransactionID         [32]byte
	ActionIndex           uint32
	ParentActionIndex     uint32
	TransactionStatus     TransactionStatus
	ReceiptReceiver       uint64 // name
	ReceiptActDigest      [32]byte
	ReceiptGlobalSequence uint64
	ReceiptRecvSequence   uint64
	ReceiptCodeSequence   uint32 // varuint32
	ReceiptAbiSequence    uint32 // varuint32
	Account               uint64 // name
	Name                  uint64 // name
	Data                  []byte
	ContextFree           bool
	Elapsed               int64
}

func (a *ActionTrace) MarshalWire(e *wire.Encoder) {
	e.WriteUint32(a.BlockIndex)
	e.WriteDigest(a.TransactionID)
	e.WriteUint32(a.ActionIndex)
	e.WriteUint32(a.ParentActionIndex)
	e.WriteUint8(uint8(a.TransactionStatus))
	e.WriteName(a.ReceiptReceiver)
	e.WriteDigest(a.ReceiptActDigest)
	e.WriteUint64(a.ReceiptGlobalSequence)
	e.WriteUint64(a.ReceiptRecvSequence)
	e.WriteVarUint32(a.ReceiptCodeSequence)
	e.WriteVarUint32(a.ReceiptAbiSequence)
	e.WriteName(a.Account)
	e.WriteName(a.Name)
	e.WriteBytes(a.Data)
	e.WriteBool(a.ContextFree)
	e.WriteInt64(a.Elapsed)
}

func (a *ActionTrace) UnmarshalWire(d *wire.Decoder) (err error) {
	if a.BlockIndex, err = d.ReadUint32(); err != nil {
		return err
	}
	if a.TransactionID, err = d.ReadDigest(); err != nil {
		return err
	}
	if a.ActionIndex, err = d.ReadUint32(); err != nil {
		return err
	}
	if a.ParentActionIndex, err = d.ReadUint32(); err != nil {
		return err
	}
	status, err := d.ReadUint8()
	if err != nil {
		return err
	}
	a.TransactionStatus = TransactionStatus(status)
	if a.ReceiptReceiver, err = d.ReadName(); err != nil {
		return err
	}
	if a.ReceiptActDigest, err = d.ReadDigest(); err != nil {
		return err
	}
	if a.ReceiptGlobalSequence, err = d.ReadUint64(); err != nil {
		return err
	}
	if a.ReceiptRecvSequence, err = d.ReadUint64(); err != nil {
		return err
	}
	if a.ReceiptCodeSequence, err = d.ReadVarUint32(); err != nil {
		return err
	}
	if a.ReceiptAbiSequence, err = d.ReadVarUint32(); err != nil {
		return err
	}
	if a.Account, err = d.ReadName(); err != nil {
		return err
	}
	if a.Name, err = d.ReadName(); err != nil {
		return err
	}
	data, err := d.ReadBytes()
	if err != nil {
		return err
	}
	a.Data = append([]byte(nil), data...)
	if a.ContextFree, err = d.ReadBool(); err != nil {
		return err
	}
	a.Elapsed, err = d.ReadInt64()
	return err
}

// Account is time-sliced account state.
type Account struct {
	BlockIndex     uint32
	Present        bool
	Name           uint64 // name
	VMType         uint8
	VMVersion      uint8
	Privileged     bool
	LastCodeUpdate int64 // time_point, microseconds since epoch
	CodeVersion    [32]byte
	CreationDate   uint32 // block_timestamp_type
	Code           []byte
	ABI            []byte
}

func (a *Account) MarshalWire(e *wire.Encoder) {
	e.WriteUint32(a.BlockIndex)
	e.WriteBool(a.Present)
	e.WriteName(a.Name)
	e.WriteUint8(a.VMType)
	e.WriteUint8(a.VMVersion)
	e.WriteBool(a.Privileged)
	e.WriteInt64(a.LastCodeUpdate)
	e.WriteDigest(a.CodeVersion)
	e.WriteUint32(a.CreationDate)
	e.WriteBytes(a.Code)
	e.WriteBytes(a.ABI)
}

func (a *Account) UnmarshalWire(d *wire.Decoder) (err error) {
	if a.BlockIndex, err = d.ReadUint32(); err != nil {
		return err
	}
	if a.Present, err = d.ReadBool(); err != nil {
		return err
	}
	if a.Name, err = d.ReadName(); err != nil {
		return err
	}
	if a.VMType, err = d.ReadUint8(); err != nil {
		return err
	}
	if a.VMVersion, err = d.ReadUint8(); err != nil {
		return err
	}
	if a.Privileged, err = d.ReadBool(); err != nil {
		return err
	}
	if a.LastCodeUpdate, err = d.ReadInt64(); err != nil {
		return err
	}
	if a.CodeVersion, err = d.ReadDigest(); err != nil {
		return err
	}
	if a.CreationDate, err = d.ReadUint32(); err != nil {
		return err
	}
	code, err := d.ReadBytes()
	if err != nil {
		return err
	}
	a.Code = append([]byte(nil), code...)
	abi, err := d.ReadBytes()
	if err != nil {
		return err
	}
	a.ABI = append([]byte(nil), abi...)
	return nil
}

// ContractRow is a single row of a smart-contract table at a block.
type ContractRow struct {
	BlockIndex uint32
	Present    bool
	Code       uint64 // name
	Scope      uint64
	Table      uint64 // name
	PrimaryKey uint64
	Payer      uint64 // name
	Value      []byte
}

func (r *ContractRow) MarshalWire(e *wire.Encoder) {
	e.WriteUint32(r.BlockIndex)
	e.WriteBool(r.Present)
	e.WriteName(r.Code)
	e.WriteUint64(r.Scope)
	e.WriteName(r.Table)
	e.WriteUint64(r.PrimaryKey)
	e.WriteName(r.Payer)
	e.WriteBytes(r.Value)
}

func (r *ContractRow) UnmarshalWire(d *wire.Decoder) (err error) {
	if r.BlockIndex, err = d.ReadUint32(); err != nil {
		return err
	}
	if r.Present, err = d.ReadBool(); err != nil {
		return err
	}
	if r.Code, err = d.ReadName(); err != nil {
		return err
	}
	if r.Scope, err = d.ReadUint64(); err != nil {
		return err
	}
	if r.Table, err = d.ReadName(); err != nil {
		return err
	}
	if r.PrimaryKey, err = d.ReadUint64(); err != nil {
		return err
	}
	if r.Payer, err = d.ReadName(); err != nil {
		return err
	}
	value, err := d.ReadBytes()
	if err != nil {
		return err
	}
	r.Value = append([]byte(nil), value...)
	return nil
}

// SecondaryKeyKind names the secondary-key types T of
// contract_secondary_index_with_row<T> (§3). ContractSecondaryIndexWithRow
// itself carries only the u64 form and has no kind field.
type SecondaryKeyKind uint8

const (
	SecondaryKeyUint64  SecondaryKeyKind = iota
	SecondaryKeyUint128
	SecondaryKeyFloat64
	SecondaryKeyDigest
	SecondaryKeyDoublet
)

// ContractSecondaryIndexWithRow is a secondary-index entry joined to the
// contract_row it indexes. Field order matches
// contract_secondary_index_with_row<T> verbatim: the index's own
// block_index/present/code/scope/table/primary_key/payer, then its
// secondary_key, then the joined row's row_block_index/row_present/
// row_payer/row_value. Only the u64 instantiation (ci1.cts2p) is catalogued
// by the registry, and SecondaryKey is a uint64; the other key types exist
// only as SecondaryKeyKind values, with no row type or variant.
type ContractSecondaryIndexWithRow struct {
	BlockIndex    uint32
	Present       bool
	Code          uint64 // name
	Scope         uint64
	Table         uint64 // name
	PrimaryKey    uint64
	Payer         uint64 // name
	SecondaryKey  uint64
	RowBlockIndex uint32
	RowPresent    bool
	RowPayer      uint64 // name
	RowValue      []byte
}

func (r *ContractSecondaryIndexWithRow) MarshalWire(e *wire.Encoder) {
	e.WriteUint32(r.BlockIndex)
	e.WriteBool(r.Present)
	e.WriteName(r.Code)
	e.WriteUint64(r.Scope)
	e.WriteName(r.Table)
	e.WriteUint64(r.PrimaryKey)
	e.WriteName(r.Payer)
	e.WriteUint64(r.SecondaryKey)
	e.WriteUint32(r.RowBlockIndex)
	e.WriteBool(r.RowPresent)
	e.WriteName(r.RowPayer)
	e.WriteBytes(r.RowValue)
}

func (r *ContractSecondaryIndexWithRow) UnmarshalWire(d *wire.Decoder) (err error) {
	if r.BlockIndex, err = d.ReadUint32(); err != nil {
		return err
	}
	if r.Present, err = d.ReadBool(); err != nil {
		return err
	}
	if r.Code, err = d.ReadName(); err != nil {
		return err
	}
	if r.Scope, err = d.ReadUint64(); err != nil {
		return err
	}
	if r.Table, err = d.ReadName(); err != nil {
		return err
	}
	if r.PrimaryKey, err = d.ReadUint64(); err != nil {
		return err
	}
	if r.Payer, err = d.ReadName(); err != nil {
		return err
	}
	if r.SecondaryKey, err = d.ReadUint64(); err != nil {
		return err
	}
	if r.RowBlockIndex, err = d.ReadUint32(); err != nil {
		return err
	}
	if r.RowPresent, err = d.ReadBool(); err != nil {
		return err
	}
	if r.RowPayer, err = d.ReadName(); err != nil {
		return err
	}
	value, err := d.ReadBytes()
	if err != nil {
		return err
	}
	r.RowValue = append([]byte(nil), value...)
	return nil
}

// DatabaseStatus is the snapshot cursor delivered to the guest via
// get_database_status and used by the driver for fork detection.
type DatabaseStatus struct {
	Head              uint32
	HeadID            [32]byte
	Irreversible      uint32
	IrreversibleID    [32]byte
	First             uint32
}

func (s *DatabaseStatus) MarshalWire(e *wire.Encoder) {
	e.WriteUint32(s.Head)
	e.WriteDigest(s.HeadID)
	e.WriteUint32(s.Irreversible)
	e.WriteDigest(s.IrreversibleID)
	e.WriteUint32(s.First)
}

func (s *DatabaseStatus) UnmarshalWire(d *wire.Decoder) (err error) {
	if s.Head, err = d.ReadUint32(); err != nil {
		return err
	}
	if s.HeadID, err = d.ReadDigest(); err != nil {
		return err
	}
	if s.Irreversible, err = d.ReadUint32(); err != nil {
		return err
	}
	if s.IrreversibleID, err = d.ReadDigest(); err != nil {
		return err
	}
	s.First, err = d.ReadUint32()
	return err
}

// Bytes serializes the blob exactly as FILL_CONTEXT (§4.G) delivers it.
func (s *DatabaseStatus) Bytes() []byte {
	e := wire.NewEncoder(make([]byte, 0, 4+32+4+32+4))
	s.MarshalWire(e)
	return e.Bytes()
}
