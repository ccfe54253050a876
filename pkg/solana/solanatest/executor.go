package solanatest

import (
	"bytes"
	"crypto/ed25519"
	"time"

	"github.com/code-payments/coupon-server/pkg/solana"
	"github.com/code-payments/coupon-server/pkg/solana/coupon"
	"github.com/code-payments/coupon-server/pkg/solana/token"
)

const (
	anchorConstraintAssociated = 2009
	tokenOwnerMismatch         = 4
	tokenMintMismatch          = 3
)

type executor struct {
	txn   solana.Transaction
	state *state
	now   time.Time
	logs  []string

	index int
}

func (e *executor) execute(index int) *solana.TransactionError {
	e.index = index

	ix := e.txn.Message.Instructions[index]
	program := e.txn.Message.Accounts[ix.ProgramIndex]
	if !bytes.Equal(program, coupon.PROGRAM_ID) {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	e.logs = append(e.logs, "Program "+encode(coupon.PROGRAM_ID)+" invoke [1]")

	var txErr *solana.TransactionError
	switch coupon.GetInstructionType(ix.Data) {
	case coupon.InstructionTypeInitializeMerchant:
		txErr = e.initializeMerchant()
	case coupon.InstructionTypeCreateCoupon:
		txErr = e.createCoupon()
	case coupon.InstructionTypeClaimCoupon:
		txErr = e.claimCoupon()
	case coupon.InstructionTypePurchaseCoupon:
		txErr = e.purchaseCoupon()
	case coupon.InstructionTypeRedeemCoupon:
		txErr = e.redeemCoupon()
	case coupon.InstructionTypeUpdateCouponStatus:
		txErr = e.updateCouponStatus()
	case coupon.InstructionTypeTransferCoupon:
		txErr = e.transferCoupon()
	case coupon.InstructionTypeListForResale:
		txErr = e.listForResale()
	case coupon.InstructionTypePurchaseFromResale:
		txErr = e.purchaseFromResale()
	default:
		txErr = e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if txErr != nil {
		return txErr
	}

	e.logs = append(e.logs, "Program "+encode(coupon.PROGRAM_ID)+" success")
	return nil
}

func (e *executor) initializeMerchant() *solana.TransactionError {
	args, accounts, err := coupon.InitializeMerchantInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.Authority) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	merchant, bump, err := coupon.GetMerchantAddress(&coupon.GetMerchantAddressArgs{Authority: accounts.Authority})
	if err != nil || !bytes.Equal(merchant, accounts.Merchant) {
		return e.custom(anchorConstraintSeeds)
	}

	if _, ok := e.state.accounts[string(merchant)]; ok {
		return e.custom(systemAccountAlreadyInUse)
	}

	if len(args.BusinessName) > coupon.MaxBusinessNameLength {
		return e.custom(int(coupon.ErrBusinessNameTooLong))
	}

	account := &coupon.MerchantAccount{
		Authority:    accounts.Authority,
		BusinessName: args.BusinessName,
		Bump:         bump,
	}
	data, err := account.Marshal()
	if err != nil {
		return e.custom(int(coupon.ErrBusinessNameTooLong))
	}

	e.state.accounts[string(merchant)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: data}
	return nil
}

func (e *executor) createCoupon() *solana.TransactionError {
	args, accounts, err := coupon.CreateCouponInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.MerchantAuthority) || !e.isSigner(accounts.Mint) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	merchant, ok := e.merchant(accounts.Merchant)
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	if !bytes.Equal(merchant.Authority, accounts.MerchantAuthority) {
		return e.custom(anchorConstraintHasOne)
	}

	addresses, err := coupon.DeriveAddresses(accounts.MerchantAuthority, accounts.Mint)
	if err != nil {
		return e.custom(anchorConstraintSeeds)
	}
	if !bytes.Equal(addresses.Merchant, accounts.Merchant) ||
		!bytes.Equal(addresses.CouponData, accounts.CouponData) ||
		!bytes.Equal(addresses.Escrow, accounts.Escrow) ||
		!bytes.Equal(addresses.Metadata, accounts.Metadata) ||
		!bytes.Equal(addresses.MasterEdition, accounts.MasterEdition) {
		return e.custom(anchorConstraintSeeds)
	}

	if _, ok := e.state.accounts[string(accounts.Mint)]; ok {
		return e.custom(systemAccountAlreadyInUse)
	}
	if _, ok := e.state.accounts[string(accounts.CouponData)]; ok {
		return e.custom(systemAccountAlreadyInUse)
	}

	if args.DiscountPercentage < 1 || args.DiscountPercentage > 100 {
		return e.custom(int(coupon.ErrInvalidDiscountPercentage))
	}
	if args.ExpiryDate <= e.now.Unix() {
		return e.custom(int(coupon.ErrInvalidExpiryDate))
	}
	if args.MaxRedemptions == 0 {
		return e.custom(int(coupon.ErrInvalidRedemptionAmount))
	}

	// Mint, metadata and edition are opaque to the ledger
	e.state.accounts[string(accounts.Mint)] = solana.AccountInfo{Owner: token.ProgramKey, Data: make([]byte, 82)}
	e.state.accounts[string(accounts.Metadata)] = solana.AccountInfo{Owner: coupon.METADATA_PROGRAM_ID, Data: []byte(args.MetadataUri)}
	e.state.accounts[string(accounts.MasterEdition)] = solana.AccountInfo{Owner: coupon.METADATA_PROGRAM_ID}

	putTokenAccount(e.state, accounts.MerchantTokenAccount, &token.Account{
		Mint:  accounts.Mint,
		Owner: accounts.MerchantAuthority,
		State: token.AccountStateInitialized,
	})
	putTokenAccount(e.state, accounts.Escrow, &token.Account{
		Mint:   accounts.Mint,
		Owner:  accounts.Merchant,
		Amount: 1,
		State:  token.AccountStateInitialized,
	})

	data := &coupon.CouponDataAccount{
		Mint:                 accounts.Mint,
		Merchant:             accounts.Merchant,
		DiscountPercentage:   args.DiscountPercentage,
		ExpiryDate:           args.ExpiryDate,
		Category:             args.Category,
		RedemptionsRemaining: args.MaxRedemptions,
		MaxRedemptions:       args.MaxRedemptions,
		IsActive:             true,
		Price:                args.Price,
		Bump:                 addresses.CouponBump,
	}
	e.state.accounts[string(accounts.CouponData)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: data.Marshal()}

	merchant.TotalCouponsCreated++
	return e.putMerchant(accounts.Merchant, merchant)
}

func (e *executor) claimCoupon() *solana.TransactionError {
	_, accounts, err := coupon.ClaimCouponInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.User) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	data, txErr := e.couponData(accounts.CouponData, accounts.Mint, accounts.Merchant)
	if txErr != nil {
		return txErr
	}
	if txErr := e.checkEscrow(accounts.Escrow, accounts.Merchant, accounts.Mint); txErr != nil {
		return txErr
	}

	if !data.IsActive {
		return e.custom(int(coupon.ErrCouponInactive))
	}
	if !data.IsFree() {
		return e.custom(int(coupon.ErrNotFreeCoupon))
	}
	if data.IsExpired(e.now) {
		return e.custom(int(coupon.ErrCouponExpired))
	}
	if data.RedemptionsRemaining == 0 {
		return e.custom(int(coupon.ErrNoRedemptionsRemaining))
	}

	if txErr := e.moveToken(accounts.Escrow, accounts.UserTokenAccount, accounts.User, accounts.Mint); txErr != nil {
		return txErr
	}

	data.RedemptionsRemaining--
	e.state.accounts[string(accounts.CouponData)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: data.Marshal()}
	return nil
}

func (e *executor) purchaseCoupon() *solana.TransactionError {
	_, accounts, err := coupon.PurchaseCouponInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.Buyer) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	data, txErr := e.couponData(accounts.CouponData, accounts.Mint, accounts.Merchant)
	if txErr != nil {
		return txErr
	}
	merchant, ok := e.merchant(accounts.Merchant)
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	if !bytes.Equal(merchant.Authority, accounts.MerchantAuthority) {
		return e.custom(anchorConstraintHasOne)
	}
	if txErr := e.checkEscrow(accounts.Escrow, accounts.Merchant, accounts.Mint); txErr != nil {
		return txErr
	}

	if !data.IsActive {
		return e.custom(int(coupon.ErrCouponInactive))
	}
	if data.IsFree() {
		return e.custom(int(coupon.ErrNotPaidCoupon))
	}
	if data.IsExpired(e.now) {
		return e.custom(int(coupon.ErrCouponExpired))
	}
	if data.RedemptionsRemaining == 0 {
		return e.custom(int(coupon.ErrNoRedemptionsRemaining))
	}

	if txErr := e.pay(accounts.Buyer, accounts.MerchantAuthority, accounts.PlatformWallet, data.Price); txErr != nil {
		return txErr
	}
	if txErr := e.moveToken(accounts.Escrow, accounts.BuyerTokenAccount, accounts.Buyer, accounts.Mint); txErr != nil {
		return txErr
	}

	data.RedemptionsRemaining--
	e.state.accounts[string(accounts.CouponData)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: data.Marshal()}
	return nil
}

func (e *executor) redeemCoupon() *solana.TransactionError {
	_, accounts, err := coupon.RedeemCouponInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.User) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	data, txErr := e.couponData(accounts.CouponData, accounts.Mint, accounts.Merchant)
	if txErr != nil {
		return txErr
	}

	holder, ok := getTokenAccount(e.state, accounts.UserTokenAccount)
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	if !bytes.Equal(holder.Mint, accounts.Mint) || !bytes.Equal(holder.Owner, accounts.User) {
		return e.custom(anchorConstraintRaw)
	}

	if !data.IsActive {
		return e.custom(int(coupon.ErrCouponNotActive))
	}
	if data.IsExpired(e.now) {
		return e.custom(int(coupon.ErrCouponExpired))
	}
	if data.RedemptionsRemaining == 0 {
		return e.custom(int(coupon.ErrCouponFullyRedeemed))
	}
	if holder.Amount < 1 {
		return e.custom(int(coupon.ErrUnauthorizedOwner))
	}

	data.RedemptionsRemaining--
	e.state.accounts[string(accounts.CouponData)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: data.Marshal()}

	event := &coupon.RedemptionEvent{
		Mint:                 accounts.Mint,
		Merchant:             accounts.Merchant,
		User:                 accounts.User,
		RedemptionsRemaining: data.RedemptionsRemaining,
		Timestamp:            e.now.Unix(),
	}
	if event.WasBurned(data.MaxRedemptions) {
		holder.Amount--
		putTokenAccount(e.state, accounts.UserTokenAccount, holder)
	}

	e.logs = append(e.logs, event.ToLog())
	return nil
}

func (e *executor) updateCouponStatus() *solana.TransactionError {
	args, accounts, err := coupon.UpdateCouponStatusInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.MerchantAuthority) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	merchant, ok := e.merchant(accounts.Merchant)
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	if !bytes.Equal(merchant.Authority, accounts.MerchantAuthority) || !bytes.Equal(merchant.Authority, accounts.Authority) {
		return e.custom(int(coupon.ErrUnauthorizedMerchant))
	}

	info, ok := e.state.accounts[string(accounts.CouponData)]
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	var data coupon.CouponDataAccount
	if err := data.Unmarshal(info.Data); err != nil {
		return e.custom(anchorAccountNotInitialized)
	}
	if !bytes.Equal(data.Merchant, accounts.Merchant) {
		return e.custom(int(coupon.ErrUnauthorizedMerchant))
	}

	data.IsActive = args.IsActive
	e.state.accounts[string(accounts.CouponData)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: data.Marshal()}
	return nil
}

func (e *executor) transferCoupon() *solana.TransactionError {
	args, accounts, err := coupon.TransferCouponInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.Buyer) || !e.isSigner(accounts.Seller) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	source, ok := getTokenAccount(e.state, accounts.SellerTokenAccount)
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	if !bytes.Equal(source.Mint, accounts.Mint) || !bytes.Equal(source.Owner, accounts.Seller) {
		return e.custom(anchorConstraintRaw)
	}
	if source.Amount != 1 {
		return e.custom(int(coupon.ErrInvalidNFTAmount))
	}

	if args.PriceLamports == 0 {
		return e.custom(int(coupon.ErrInvalidPrice))
	}
	if txErr := e.pay(accounts.Buyer, accounts.Seller, accounts.PlatformWallet, args.PriceLamports); txErr != nil {
		return txErr
	}

	return e.moveToken(accounts.SellerTokenAccount, accounts.BuyerTokenAccount, accounts.Buyer, accounts.Mint)
}

func (e *executor) listForResale() *solana.TransactionError {
	_, accounts, err := coupon.ListForResaleInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.Seller) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	source, ok := getTokenAccount(e.state, accounts.SellerTokenAccount)
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	if !bytes.Equal(source.Mint, accounts.Mint) || !bytes.Equal(source.Owner, accounts.Seller) {
		return e.custom(anchorConstraintRaw)
	}
	if source.Amount != 1 {
		return e.custom(int(coupon.ErrInvalidNFTAmount))
	}

	resaleEscrow, _, err := coupon.GetResaleEscrowAddress(&coupon.GetResaleEscrowAddressArgs{
		Mint:   accounts.Mint,
		Seller: accounts.Seller,
	})
	if err != nil || !bytes.Equal(resaleEscrow, accounts.ResaleEscrow) {
		return e.custom(anchorConstraintSeeds)
	}

	if _, ok := e.state.accounts[string(resaleEscrow)]; !ok {
		putTokenAccount(e.state, resaleEscrow, &token.Account{
			Mint:  accounts.Mint,
			Owner: resaleEscrow,
			State: token.AccountStateInitialized,
		})
	}

	return e.moveToken(accounts.SellerTokenAccount, resaleEscrow, resaleEscrow, accounts.Mint)
}

func (e *executor) purchaseFromResale() *solana.TransactionError {
	args, accounts, err := coupon.PurchaseFromResaleInstructionFromLegacyInstruction(e.txn, e.index)
	if err != nil {
		return e.instructionError(solana.InstructionErrorInvalidInstructionData)
	}

	if !e.isSigner(accounts.Buyer) {
		return e.instructionError(solana.InstructionErrorMissingRequiredSignature)
	}

	resaleEscrow, _, err := coupon.GetResaleEscrowAddress(&coupon.GetResaleEscrowAddressArgs{
		Mint:   accounts.Mint,
		Seller: accounts.Seller,
	})
	if err != nil || !bytes.Equal(resaleEscrow, accounts.ResaleEscrow) {
		return e.custom(anchorConstraintSeeds)
	}

	escrow, ok := getTokenAccount(e.state, resaleEscrow)
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	if escrow.Amount != 1 {
		return e.custom(int(coupon.ErrInvalidNFTAmount))
	}
	if args.PriceLamports == 0 {
		return e.custom(int(coupon.ErrInvalidPrice))
	}

	if txErr := e.pay(accounts.Buyer, accounts.Seller, accounts.PlatformWallet, args.PriceLamports); txErr != nil {
		return txErr
	}

	return e.moveToken(resaleEscrow, accounts.BuyerTokenAccount, accounts.Buyer, accounts.Mint)
}

//
// Helpers
//

func (e *executor) isSigner(key ed25519.PublicKey) bool {
	for i, account := range e.txn.Message.Accounts {
		if bytes.Equal(account, key) {
			return e.txn.Message.IsSigner(i)
		}
	}
	return false
}

func (e *executor) merchant(address ed25519.PublicKey) (*coupon.MerchantAccount, bool) {
	info, ok := e.state.accounts[string(address)]
	if !ok || !bytes.Equal(info.Owner, coupon.PROGRAM_ID) {
		return nil, false
	}

	var merchant coupon.MerchantAccount
	if err := merchant.Unmarshal(info.Data); err != nil {
		return nil, false
	}
	return &merchant, true
}

func (e *executor) putMerchant(address ed25519.PublicKey, merchant *coupon.MerchantAccount) *solana.TransactionError {
	data, err := merchant.Marshal()
	if err != nil {
		return e.custom(int(coupon.ErrBusinessNameTooLong))
	}
	e.state.accounts[string(address)] = solana.AccountInfo{Owner: coupon.PROGRAM_ID, Data: data}
	return nil
}

// couponData loads the coupon data account and enforces its seeds and the
// has_one relationships with the mint and merchant.
func (e *executor) couponData(address, mint, merchant ed25519.PublicKey) (*coupon.CouponDataAccount, *solana.TransactionError) {
	expected, _, err := coupon.GetCouponDataAddress(&coupon.GetCouponDataAddressArgs{Mint: mint})
	if err != nil || !bytes.Equal(expected, address) {
		return nil, e.custom(anchorConstraintSeeds)
	}

	info, ok := e.state.accounts[string(address)]
	if !ok || !bytes.Equal(info.Owner, coupon.PROGRAM_ID) {
		return nil, e.custom(anchorAccountNotInitialized)
	}

	var data coupon.CouponDataAccount
	if err := data.Unmarshal(info.Data); err != nil {
		return nil, e.custom(anchorAccountNotInitialized)
	}

	if !bytes.Equal(data.Merchant, merchant) || !bytes.Equal(data.Mint, mint) {
		return nil, e.custom(anchorConstraintHasOne)
	}
	return &data, nil
}

func (e *executor) checkEscrow(address, merchant, mint ed25519.PublicKey) *solana.TransactionError {
	expected, _, err := coupon.GetEscrowAddress(&coupon.GetEscrowAddressArgs{Merchant: merchant, Mint: mint})
	if err != nil || !bytes.Equal(expected, address) {
		return e.custom(anchorConstraintSeeds)
	}
	if _, ok := getTokenAccount(e.state, address); !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	return nil
}

// pay moves price from payer, splitting it between the recipient and the
// platform. The platform leg is skipped when the fee rounds to zero.
func (e *executor) pay(payer, recipient, platform ed25519.PublicKey, price uint64) *solana.TransactionError {
	net, fee, err := coupon.SplitPayment(price)
	if err != nil {
		return e.custom(int(coupon.ErrProgramArithmeticOverflow))
	}

	if e.state.lamports[string(payer)] < price {
		return e.custom(systemResultWithNegativeFunds)
	}

	e.state.lamports[string(payer)] -= price
	e.state.lamports[string(recipient)] += net
	if fee > 0 {
		e.state.lamports[string(platform)] += fee
	}
	return nil
}

// moveToken transfers a single unit into destination, which must be the
// associated account of destinationOwner unless it is a program derived
// escrow. Missing associated accounts are created.
func (e *executor) moveToken(source, destination, destinationOwner, mint ed25519.PublicKey) *solana.TransactionError {
	from, ok := getTokenAccount(e.state, source)
	if !ok {
		return e.custom(anchorAccountNotInitialized)
	}
	if !bytes.Equal(from.Mint, mint) {
		return e.custom(tokenMintMismatch)
	}
	if from.Amount < 1 {
		return e.custom(tokenInsufficientFunds)
	}

	to, ok := getTokenAccount(e.state, destination)
	if !ok {
		ata, err := token.GetAssociatedAccount(destinationOwner, mint)
		if err != nil || !bytes.Equal(ata, destination) {
			return e.custom(anchorConstraintAssociated)
		}
		to = &token.Account{
			Mint:  mint,
			Owner: destinationOwner,
			State: token.AccountStateInitialized,
		}
	}
	if !bytes.Equal(to.Mint, mint) {
		return e.custom(tokenMintMismatch)
	}
	if !bytes.Equal(to.Owner, destinationOwner) {
		return e.custom(tokenOwnerMismatch)
	}

	from.Amount--
	to.Amount++
	putTokenAccount(e.state, source, from)
	putTokenAccount(e.state, destination, to)
	return nil
}

func (e *executor) custom(code int) *solana.TransactionError {
	return solana.NewCustomInstructionError(e.index, code, e.logs...)
}

func (e *executor) instructionError(key solana.InstructionErrorKey) *solana.TransactionError {
	txErr, _ := solana.ParseTransactionError(map[string]interface{}{
		string(solana.TransactionErrorInstructionError): []interface{}{e.index, string(key)},
	})
	return txErr
}
