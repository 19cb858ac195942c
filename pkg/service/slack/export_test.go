package slack

var FormatMoney = formatMoney
