package extraction

// Prompt instructs the model to return the receipt as a single JSON object.
const Prompt = `Extract the receipt or invoice data from the attached document and return it as a single JSON object with this exact structure:

{
  "file_display_name": string,
  "merchant": {"name": string, "address": string, "contact": string},
  "transaction": {"date": string, "receipt_number": string, "payment_method": string},
  "items": [{"name": string, "quantity": number, "unit_price": number, "total_price": number}],
  "totals": {"subtotal": number, "tax": number, "total_paid": number, "currency": string},
  "summary": string
}

Rules:
- Use null for any value that is not present on the document. Never guess or invent values.
- "file_display_name" is a short human-readable title such as "Corner Store - 2025-03-01".
- "transaction.date" uses YYYY-MM-DD when the date can be read.
- "currency" is the ISO 4217 code (for example USD, EUR, GBP).
- Amounts are plain numbers without currency symbols or thousands separators.
- "summary" is one sentence describing the purchase.
- Respond with the JSON object only.`
