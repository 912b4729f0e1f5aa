package quorumverifier

import "github.com/quorumwire/fle-election/src/message"

// Oracle is the external tie-breaker a two-node ensemble consults to
// tolerate the loss of one voter without losing the ability to elect.
// It is out of scope (an external collaborator);
// this interface is the contract a real oracle client would implement.
type Oracle interface {
	// AskOracle reports whether the oracle currently grants this node the
	// progress token.
	AskOracle() bool
}

// OracleMajority wraps a Weighted verifier and additionally requires an
// oracle vote when exactly two members are configured — the case where a
// plain majority can never tolerate a single failure. NeedOracle is false
// for any other ensemble size, matching the ZooKeeper QuorumOracleMaj rule
// this is grounded on (see DESIGN.md).
type OracleMajority struct {
	*Weighted
	oracle Oracle
}

// NewOracleMajority builds an oracle-assisted majority verifier.
func NewOracleMajority(version int64, weights map[message.ServerId]uint32, oracle Oracle) *OracleMajority {
	return &OracleMajority{Weighted: NewWeighted(version, weights), oracle: oracle}
}

func (o *OracleMajority) NeedOracle() bool {
	return len(o.weights) == 2
}

func (o *OracleMajority) AskOracle() bool {
	if o.oracle == nil {
		return false
	}
	return o.oracle.AskOracle()
}

func (o *OracleMajority) Equal(other QuorumVerifier) bool {
	oo, ok := other.(*OracleMajority)
	if !ok {
		return false
	}
	return o.Weighted.Equal(oo.Weighted)
}
