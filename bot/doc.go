// Package bot serves the published rates over Telegram.
//
// Supported commands:
//
//	/tasa <origen> <destino> [full|público|mayorista]
//	/convertir <monto> <origen> <destino> [full|público|mayorista]
//	/usdt <país> <monto>
package bot
