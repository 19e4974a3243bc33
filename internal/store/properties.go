package store

// Store property ids for the tracked document object type. The docsync:
// namespace is the secondary-type model installed on the repository; cmis:
// ids are protocol-level.
const (
	PropObjectTypeID  = "cmis:objectTypeId"
	PropName          = "cmis:name"
	PropObjectID      = "cmis:objectId"
	PropBaseTypeID    = "cmis:baseTypeId"
	PropContentStream = "cmis:contentStreamId"
	PropCheckedOutID  = "cmis:versionSeriesCheckedOutId"
	PropCheckedOutBy  = "cmis:versionSeriesCheckedOutBy"

	PropIdentifier      = "docsync:documentIdentifier"
	PropTitle           = "docsync:documentTitle"
	PropDescription     = "docsync:documentDescription"
	PropAuthor          = "docsync:documentAuthor"
	PropLanguage        = "docsync:documentLanguage"
	PropConfidentiality = "docsync:confidentiality"
	PropCreationDate    = "docsync:documentCreationDate"
	PropReceiptDate     = "docsync:documentReceiptDate"
	PropSendDate        = "docsync:documentSendDate"
)

// Object type ids used when creating store objects.
const (
	TypeDocument   = "D:docsync:document"
	TypeCaseFolder = "F:docsync:caseFolder"
	TypeFolder     = "cmis:folder"
)

// Well-known folder names outside the case hierarchy.
const (
	TempFolderName  = "Unfiled"
	TrashFolderName = "Trash"
)
