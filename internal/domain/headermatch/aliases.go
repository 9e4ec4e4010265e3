package headermatch

// Canonical field names shared by all extractors.
const (
	FieldName        = "name"
	FieldSKU         = "sku"
	FieldPrice       = "price"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldSize        = "size"
	FieldQuantity    = "quantity"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldCustomer    = "customer"
	FieldLoyalty     = "loyalty"
	FieldVisits      = "visits"
	FieldSpend       = "spend"
	FieldLocation    = "location"
	FieldAddress     = "address"
	FieldCity        = "city"
	FieldZip         = "zip"
	FieldType        = "type"
	FieldExternalID  = "external_id"
	FieldDate        = "date"
	FieldTotal       = "total"
	FieldTransaction = "transaction"
	FieldModifier    = "modifier"
	FieldNotes       = "notes"
)

// defaultAliases maps canonical fields to normalized header spellings seen in
// POS exports. Alias entries are compared after Normalize, so they are listed
// in normalized form.
var defaultAliases = map[string][]string{
	FieldName: {
		"name", "item", "item_name", "product", "product_name", "menu_item",
		"title", "label", "sellable", "dish",
	},
	FieldSKU: {
		"sku", "item_sku", "product_sku", "plu", "upc", "barcode", "item_code",
		"product_code", "code",
	},
	FieldPrice: {
		"price", "unit_price", "item_price", "base_price", "retail_price",
		"sale_price", "amount", "cost", "price_usd",
	},
	FieldCategory: {
		"category", "item_category", "product_category", "department", "group",
		"menu_category", "section",
	},
	FieldDescription: {
		"description", "item_description", "product_description", "details",
		"long_description",
	},
	FieldSize: {
		"size", "variant", "variation", "portion", "option", "item_size",
	},
	FieldQuantity: {
		"quantity", "qty", "count", "units", "stock", "on_hand",
	},
	FieldEmail: {
		"email", "email_address", "customer_email", "e_mail", "contact_email",
	},
	FieldPhone: {
		"phone", "phone_number", "telephone", "mobile", "cell", "contact_phone",
		"customer_phone",
	},
	FieldCustomer: {
		"customer", "customer_name", "client", "client_name", "guest",
		"guest_name", "member", "patron", "buyer", "full_name", "first_name",
		"last_name",
	},
	FieldLoyalty: {
		"loyalty", "loyalty_id", "loyalty_number", "rewards", "points",
		"member_id",
	},
	FieldVisits: {
		"visits", "visit_count", "orders", "order_count", "transactions_count",
	},
	FieldSpend: {
		"spend", "total_spend", "total_spent", "lifetime_spend", "lifetime_value",
	},
	FieldLocation: {
		"location", "location_name", "store", "store_name", "site", "branch",
		"venue", "outlet", "shop",
	},
	FieldAddress: {
		"address", "street", "street_address", "address_1", "address_line_1",
	},
	FieldCity: {
		"city", "town",
	},
	FieldZip: {
		"zip", "zip_code", "postal_code", "postcode",
	},
	FieldType: {
		"type", "location_type", "store_type", "kind",
	},
	FieldExternalID: {
		"external_id", "externalid", "id", "location_id", "store_id",
		"customer_id", "ref", "reference", "external_ref", "remote_id",
	},
	FieldDate: {
		"date", "order_date", "transaction_date", "created", "created_at",
		"datetime", "timestamp", "time",
	},
	FieldTotal: {
		"total", "order_total", "transaction_total", "grand_total", "subtotal",
	},
	FieldTransaction: {
		"transaction", "transaction_id", "order", "order_id", "order_number",
		"receipt", "receipt_number", "ticket", "check",
	},
	FieldModifier: {
		"modifier", "modifiers", "add_ons", "addons", "extras", "toppings",
	},
	FieldNotes: {
		"notes", "note", "comment", "comments", "memo",
	},
}
