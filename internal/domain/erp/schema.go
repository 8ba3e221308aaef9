package erp

// Tables of the ERP used by the bridge
const (
	TableArticles  = "Art"
	TableGroups    = "Wgr"
	TableTaxes     = "Steuer"
	TableAddresses = "Adr"
	TableAnschrift = "Ans"
	TableContacts  = "Asp"
)

// Article fields
const (
	ArtNr          = "ArtNr"
	ArtName        = "Bez"
	ArtDescription = "Beschr"
	ArtStock       = "Bestand"
	ArtUnit        = "Einh"
	ArtMinPurchase = "MinAbnahme"
	ArtBundleCost  = "VsKosten"
	ArtBundleSize  = "VsMenge"
	ArtWebActive   = "WebAktiv"
	ArtPriceFactor = "PreisFaktor"
	ArtTaxKey      = "StSchl"
	ArtGroups      = "Wgr"
	ArtImages      = "Bilder"
	ArtPrice       = "VkPreis"
	ArtRebateQty   = "RabMenge"
	ArtRebatePrice = "RabPreis"
	ArtSpecial     = "AktPreis"
	ArtSpecialFrom = "AktVon"
	ArtSpecialTo   = "AktBis"
	ArtModifiedAt  = "GeaendertAm"
)

// Product group fields
const (
	WgrNr          = "Nr"
	WgrName        = "Bez"
	WgrDescription = "Beschr"
	WgrParentNr    = "VNr"
	WgrImage       = "Bild"
	WgrModifiedAt  = "GeaendertAm"
)

// Tax fields
const (
	TaxNr          = "Nr"
	TaxDescription = "Bez"
	TaxRate        = "Satz"
)

// Address (customer master) fields
const (
	AdrNr         = "Nr"
	AdrEmail      = "EMail"
	AdrVatID      = "UStIdNr"
	AdrName       = "Na1"
	AdrModifiedAt = "GeaendertAm"
)

// Anschrift (sub-address) fields
const (
	AnsAdrNr        = "AdrNr"
	AnsNr           = "AnsNr"
	AnsCompany      = "Na1"
	AnsName         = "Na2"
	AnsAdditional   = "Na3"
	AnsStreet       = "Str"
	AnsZip          = "PLZ"
	AnsCity         = "Ort"
	AnsCountry      = "Land"
	AnsPhone        = "Tel"
	AnsEmail        = "EMail"
	AnsStdBilling   = "StdReKz"
	AnsStdShipping  = "StdLiKz"
	AnsPlatformID   = "WebID"
	AnsDescription  = "Bez"
	AnsBillingKind  = "Rechnung"
	AnsShippingKind = "Lieferung"
)

// Ansprechpartner (contact) fields
const (
	AspAdrNr      = "AdrNr"
	AspAnsNr      = "AnsNr"
	AspNr         = "AspNr"
	AspSalutation = "Anr"
	AspTitle      = "Titel"
	AspFirstName  = "VNa"
	AspLastName   = "NNa"
	AspPhone      = "Tel"
	AspEmail      = "EMail"
	AspDepartment = "Abt"
)

// Indexes. An index name lists its fields separated by commas.
const (
	IndexArtNr         = "ArtNr"
	IndexArtModified   = "GeaendertAm"
	IndexNr            = "Nr"
	IndexAdrModified   = "GeaendertAm"
	IndexAdrEmail      = "EMail"
	IndexAnschrift     = "AdrNr,AnsNr"
	IndexContact       = "AdrNr,AnsNr,AspNr"
	IndexWgrModified   = "GeaendertAm"
	ListSeparator      = ","
	ImageListSeparator = "\n"
)
