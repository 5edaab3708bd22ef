package engine

// Settlement is the split of a winning bid between the platform and the
// seller. Fee applies to the surplus above the reserve only: a bid exactly
// at reserve carries no fee.
type Settlement struct {
	Fee            int64
	SellerProceeds int64
}

// ComputeSettlement splits winningBid for the given reserve and fee rate in
// basis points (1/10000). Rounding is toward zero, in the seller's favor.
// Fee + SellerProceeds always equals winningBid.
func ComputeSettlement(winningBid, reservePrice int64, feeBPS int) Settlement {
	surplus := winningBid - reservePrice
	if surplus < 0 {
		surplus = 0
	}
	fee := surplus * int64(feeBPS) / 10000
	return Settlement{
		Fee:            fee,
		SellerProceeds: winningBid - fee,
	}
}
