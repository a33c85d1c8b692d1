package fits

const (
	// BlockSize is the FITS logical record length. Every header and data
	// block starts on a multiple of it.
	BlockSize = 2880

	// CardSize is the width of a single header card.
	CardSize = 80

	// CardsPerBlock is the number of header cards in one block.
	CardsPerBlock = BlockSize / CardSize

	// keywordSize is the width of the keyword field at the start of a card.
	keywordSize = 8

	// valueOffset is where the value field starts when the card carries the
	// "= " value indicator in columns 9-10.
	valueOffset = 10
)

// Reserved keywords.
const (
	keySimple   = "SIMPLE"
	keyXtension = "XTENSION"
	keyEnd      = "END"
	keyBitpix   = "BITPIX"
	keyNaxis    = "NAXIS"
	keyPcount   = "PCOUNT"
	keyGcount   = "GCOUNT"
	keyGroups   = "GROUPS"
	keyTfields  = "TFIELDS"
	keyTheap    = "THEAP"

	keyZImage   = "ZIMAGE"
	keyZCmpType = "ZCMPTYPE"
	keyZBitpix  = "ZBITPIX"
	keyZNaxis   = "ZNAXIS"
	keyZQuantiz = "ZQUANTIZ"
	keyZDither0 = "ZDITHER0"
	keyZScale   = "ZSCALE"
	keyZZero    = "ZZERO"
	keyZBlank   = "ZBLANK"

	// KeyWidth and KeyHeight hold the dimensions of a tile-compressed image.
	KeyWidth  = "ZNAXIS1"
	KeyHeight = "ZNAXIS2"
)

// AlignBlock rounds n up to the next multiple of BlockSize.
//
//	AlignBlock(0)    = 0
//	AlignBlock(1)    = 2880
//	AlignBlock(2880) = 2880
func AlignBlock(n int) int {
	if r := n % BlockSize; r != 0 {
		return n + BlockSize - r
	}
	return n
}
